package model

// Decorator enriches an assembled document with additional metadata before it
// is handed to renderers.
type Decorator interface {
	Decorate(*Document) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*Document) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(doc *Document) error {
	return fn(doc)
}
