package categorizer_test

import (
	"testing"

	"github.com/mosaiq/bankfeed/pkg/categorizer"
	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDefault_Categorize(t *testing.T) {
	categorize := categorizer.Default()

	tests := []struct {
		name        string
		description string
		amount      string
		want        string
		wantOK      bool
	}{
		{"groceries", "ACHAT CARTE MONOPRIX PARIS", "-45.67", "alimentation", true},
		{"salary", "SALAIRE ENTREPRISE XYZ", "2500.00", "salaire", true},
		{"transport", "SNCF INTERNET", "-89.00", "transport", true},
		{"streaming", "PRLV NETFLIX.COM", "-13.49", "loisirs", true},
		{"incoming transfer", "VIREMENT DE M DUPONT", "150.00", "virement_entrant", true},
		{"outgoing transfer", "VIREMENT VERS EPARGNE", "-200.00", "virement_sortant", true},
		{"unknown", "XK39 UNLABELED OP", "-1.00", "autres", true},
		{"empty description", "   ", "-1.00", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &domain.BankTransaction{
				Description: tt.description,
				Amount:      decimal.RequireFromString(tt.amount),
			}
			got, ok := categorize(tx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNone_NeverCategorizes(t *testing.T) {
	categorize := categorizer.None()
	got, ok := categorize(&domain.BankTransaction{Description: "SALAIRE"})
	assert.False(t, ok)
	assert.Empty(t, got)
}
