/*
Package store layers a typed service-repository pattern over the raw
record adapter.

The adapter deals in open-shape records; store converts those to and
from a caller-supplied struct type, so application code works with its
own models while the adapter keeps handling keys, timestamps, batching,
and pagination underneath. On top of the conversion it adds:

  - Input validation from `validate` struct tags (validator/v10),
    including custom rules via RegisterValidation.
  - Before-save hooks for create and update, for id generation,
    normalization, or cross-field checks.
  - An ErrNotFound sentinel, where the adapter reports absence as a nil
    record.

Example:

	type Product struct {
		ID   string `dynamodbav:"id" validate:"required"`
		Kind string `dynamodbav:"sk" validate:"required"`
		Name string `dynamodbav:"name" validate:"required"`
	}

	svc := store.NewService[Product](adapter)
	created, err := svc.Create(ctx, &Product{ID: "p-1", Kind: "product", Name: "Gopher"})
*/
package store
