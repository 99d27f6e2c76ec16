package order

import "github.com/xenking/pos-orders/internal/domain/currency"

// CheckCurrency decides whether a product priced in candidate may join an
// order. When established is the zero value no currency has been set yet
// and any valid candidate is accepted.
func CheckCurrency(established, candidate currency.Currency, productName string) error {
	if !candidate.Valid() {
		return invalid("%q has no valid currency", productName)
	}
	if !established.Valid() || established == candidate {
		return nil
	}
	return &CurrencyMismatchError{
		Established: established,
		Candidate:   candidate,
		ProductName: productName,
	}
}
