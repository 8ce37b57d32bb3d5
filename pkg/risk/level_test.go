package risk_test

import (
	"encoding/json"
	"testing"

	"github.com/goliatone/go-swms/pkg/risk"
)

func TestClassify(t *testing.T) {
	cases := map[risk.Score]risk.Level{
		1:  risk.LevelLow,
		4:  risk.LevelLow,
		5:  risk.LevelMedium,
		9:  risk.LevelMedium,
		10: risk.LevelHigh,
		16: risk.LevelHigh,
		17: risk.LevelExtreme,
		25: risk.LevelExtreme,
	}
	for score, want := range cases {
		if got := risk.Classify(score); got != want {
			t.Fatalf("Classify(%d) = %s, want %s", score, got, want)
		}
		if got := score.Level(); got != want {
			t.Fatalf("Score(%d).Level() = %s, want %s", score, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if got, ok := risk.ParseLevel(" high "); !ok || got != risk.LevelHigh {
		t.Fatalf("ParseLevel(high) = %q, %v", got, ok)
	}
	if _, ok := risk.ParseLevel("catastrophic"); ok {
		t.Fatalf("expected unknown level to fail")
	}
}

func TestScoreJSON(t *testing.T) {
	payload, err := json.Marshal(risk.Score(11))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"value":11,"level":"High"}` {
		t.Fatalf("unexpected payload %s", payload)
	}

	var fromObject risk.Score
	if err := json.Unmarshal([]byte(`{"value":4,"level":"Extreme"}`), &fromObject); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if fromObject != 4 || fromObject.Level() != risk.LevelLow {
		t.Fatalf("object form decoded to %d/%s, want 4/Low", fromObject, fromObject.Level())
	}

	var fromNumber risk.Score
	if err := json.Unmarshal([]byte(`7`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if fromNumber != 7 {
		t.Fatalf("number form decoded to %d, want 7", fromNumber)
	}
}

func TestParseCategory(t *testing.T) {
	if got := risk.ParseCategory("electrical"); got != risk.CategoryElectrical {
		t.Fatalf("ParseCategory(electrical) = %q", got)
	}
	if got := risk.ParseCategory("Noise"); got != risk.CategoryGeneral {
		t.Fatalf("unknown categories should map to General, got %q", got)
	}
	if got := risk.ParseCategory("  "); got != risk.CategoryNone {
		t.Fatalf("blank category should be none, got %q", got)
	}
}
