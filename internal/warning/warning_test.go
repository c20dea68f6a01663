package warning

import (
	"testing"

	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(energy, sugars, satFat, sodium float64) nutrients.Profile {
	return nutrients.Profile{
		nutrients.Energy:       energy,
		nutrients.Sugars:       sugars,
		nutrients.SaturatedFat: satFat,
		nutrients.Sodium:       sodium,
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(Phase3)

	tests := []struct {
		name        string
		profile     nutrients.Profile
		productType ProductType
		expected    []Label
	}{
		{
			name:        "solid boundaries inclusive on energy and fat",
			profile:     profile(275, 9, 4, 399),
			productType: Solid,
			expected:    []Label{HighInCalories, HighInSaturatedFat},
		},
		{
			name:        "liquid every threshold met exactly",
			profile:     profile(70, 5, 3, 100),
			productType: Liquid,
			expected:    []Label{HighInCalories, HighInSugars, HighInSaturatedFat, HighInSodium},
		},
		{
			name:        "liquid just below every threshold",
			profile:     profile(69.9, 4.9, 2.9, 99.9),
			productType: Liquid,
			expected:    []Label{},
		},
		{
			name:        "missing nutrients never trigger",
			profile:     nutrients.Profile{},
			productType: Solid,
			expected:    []Label{},
		},
		{
			name:        "nil profile",
			profile:     nil,
			productType: Liquid,
			expected:    []Label{},
		},
		{
			name:        "only sodium",
			profile:     nutrients.Profile{nutrients.Sodium: 1200},
			productType: Solid,
			expected:    []Label{HighInSodium},
		},
		{
			name:        "unknown product type yields no labels",
			profile:     profile(1000, 100, 100, 10000),
			productType: ProductType("gas"),
			expected:    []Label{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.profile, tt.productType))
		})
	}
}

func TestClassifier_OrderIsFixed(t *testing.T) {
	c := NewClassifier(Phase3)
	labels := c.Classify(profile(500, 50, 20, 900), Solid)

	assert.Equal(t, Order, labels)
}

func TestClassifier_InjectedTable(t *testing.T) {
	custom := Table{
		Name: "strict",
		Limits: map[ProductType]Thresholds{
			Solid: {HighInSugars: 1},
		},
	}
	c := NewClassifier(custom)

	assert.Equal(t, []Label{HighInSugars}, c.Classify(profile(9999, 1, 99, 9999), Solid))
	assert.Equal(t, "strict", c.Table().Name)
}

func TestPhasesDiffer(t *testing.T) {
	p := profile(290, 12, 4.5, 450)

	assert.Empty(t, NewClassifier(Phase1).Classify(p, Solid))
	assert.Empty(t, NewClassifier(Phase2).Classify(p, Solid))
	assert.Equal(t, Order, NewClassifier(Phase3).Classify(p, Solid))
}

func TestLookupPhase(t *testing.T) {
	table, err := LookupPhase("")
	require.NoError(t, err)
	assert.Equal(t, "phase3", table.Name)

	table, err = LookupPhase(" Phase1 ")
	require.NoError(t, err)
	assert.Equal(t, 350.0, table.Limits[Solid][HighInCalories])

	_, err = LookupPhase("phase9")
	assert.ErrorIs(t, err, ErrUnknownPhase)

	assert.Equal(t, []string{"phase1", "phase2", "phase3"}, PhaseNames())
}

func TestParseProductType(t *testing.T) {
	tests := []struct {
		input    string
		expected ProductType
		wantErr  bool
	}{
		{"Sólido", Solid, false},
		{"solid", Solid, false},
		{"LÍQUIDO", Liquid, false},
		{"liquido", Liquid, false},
		{"liquid", Liquid, false},
		{"gas", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProductType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProductType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLabel_Text(t *testing.T) {
	assert.Equal(t, []string{"ALTO EN CALORÍAS", "ALTO EN AZÚCARES", "ALTO EN GRASAS SATURADAS", "ALTO EN SODIO"}, Texts(Order))
}
