package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-swms/internal/prompt"
	"github.com/goliatone/go-swms/pkg/validation"
)

// scriptedDriver answers prompts from fixed queues.
type scriptedDriver struct {
	inputs  []string
	selects []int
	multis  [][]int
	confirm []bool
	texts   []string
}

func (s *scriptedDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	if len(s.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[0]
	s.inputs = s.inputs[1:]
	if val == "" {
		val = cfg.Default
	}
	return val, nil
}

func (s *scriptedDriver) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) {
	if len(s.confirm) == 0 {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[0]
	s.confirm = s.confirm[1:]
	return val, nil
}

func (s *scriptedDriver) Select(context.Context, prompt.SelectConfig) (int, error) {
	if len(s.selects) == 0 {
		return -1, errors.New("no select scripted")
	}
	val := s.selects[0]
	s.selects = s.selects[1:]
	return val, nil
}

func (s *scriptedDriver) MultiSelect(context.Context, prompt.SelectConfig) ([]int, error) {
	if len(s.multis) == 0 {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multis[0]
	s.multis = s.multis[1:]
	return val, nil
}

func (s *scriptedDriver) TextArea(context.Context, prompt.TextAreaConfig) (string, error) {
	if len(s.texts) == 0 {
		return "", errors.New("no textarea scripted")
	}
	val := s.texts[0]
	s.texts = s.texts[1:]
	return val, nil
}

func (s *scriptedDriver) Info(context.Context, string) error { return nil }

func useDriver(t *testing.T, driver prompt.Driver) {
	t.Helper()
	original := newDriver
	newDriver = func(io.Writer) prompt.Driver { return driver }
	t.Cleanup(func() { newDriver = original })
}

func TestInit_WritesValidRequest(t *testing.T) {
	useDriver(t, &scriptedDriver{
		inputs: []string{
			"Acme", "", "Warehouse fit-out", "", "", "", "", "", "", "2025-02-03",
			"Install racking", "", "Heavy frames",
			"Site office", "0400 111 222", "",
		},
		selects: []int{0},
		multis:  [][]int{{2}, {0, 3}},
		confirm: []bool{false, false},
		texts:   []string{"Use mechanical lifting aids", "Evacuate to the car park"},
	})

	output := filepath.Join(t.TempDir(), "request.yaml")
	_, stderr, err := execute(t, "init", "-o", output)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(stderr, output) {
		t.Fatalf("stderr = %q", stderr)
	}

	raw, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(raw), "projectName: Warehouse fit-out") {
		t.Fatalf("unexpected request:\n%s", raw)
	}
	if result := validation.ValidateRequest(raw); !result.Valid {
		t.Fatalf("init output invalid: %+v", result.Issues)
	}

	out, _, err := execute(t, "validate", output)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "ok") {
		t.Fatalf("validate output = %q", out)
	}
}

func TestInit_Aborted(t *testing.T) {
	useDriver(t, &scriptedDriver{})
	if _, _, err := execute(t, "init", "-o", "-"); err == nil {
		t.Fatalf("expected error when no answers are given")
	}
}
