package cipher

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Fields holds the five personal data fields, either all plaintext or all
// ciphertext. Partial encryption is not a valid state: the batch helpers fail
// as a unit so a half-encrypted record can never be observed.
type Fields struct {
	Username    string
	FullName    string
	DateOfBirth string
	Address     string
	PhoneNumber string
}

// EncryptFields encrypts all five fields concurrently. The five operations
// have no ordering dependency; the first failure cancels the rest.
func EncryptFields(ctx context.Context, p Provider, plain Fields) (Fields, error) {
	return mapFields(ctx, plain, p.Encrypt)
}

// DecryptFields decrypts all five fields concurrently.
func DecryptFields(ctx context.Context, p Provider, enc Fields) (Fields, error) {
	return mapFields(ctx, enc, p.Decrypt)
}

func mapFields(ctx context.Context, in Fields, op func(context.Context, string) (string, error)) (Fields, error) {
	g, ctx := errgroup.WithContext(ctx)

	var out Fields
	apply := func(src string, dst *string) {
		g.Go(func() error {
			v, err := op(ctx, src)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		})
	}

	apply(in.Username, &out.Username)
	apply(in.FullName, &out.FullName)
	apply(in.DateOfBirth, &out.DateOfBirth)
	apply(in.Address, &out.Address)
	apply(in.PhoneNumber, &out.PhoneNumber)

	if err := g.Wait(); err != nil {
		return Fields{}, err
	}
	return out, nil
}
