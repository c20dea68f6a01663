package label

import (
	"fmt"

	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
)

// notShown fills the per-100 column where the image prints no value
const notShown = "-"

// SimplifiedInput feeds the image rendering. PerServing values are printed as given.
type SimplifiedInput struct {
	ProductName          string
	ServingSize          float64
	ServingsPerContainer int
	ServingText          string
	PerServing           nutrients.Profile
	Per100               nutrients.Profile
	IncludeFiber         bool
	IncludeTrans         bool
}

// SimplifiedRow is one text line of the image: nutrient, per serving, per 100
type SimplifiedRow struct {
	Nutrient   string `json:"nutrient"`
	PerServing string `json:"per_serving"`
	Per100     string `json:"per_100"`
}

// SimplifiedLabel is the field set handed to the image renderer
type SimplifiedLabel struct {
	Title                string          `json:"title"`
	Product              string          `json:"product"`
	Serving              string          `json:"serving"`
	ServingsPerContainer int             `json:"servings_per_container"`
	Headers              [3]string       `json:"headers"`
	Rows                 []SimplifiedRow `json:"rows"`
}

type simplifiedSpec struct {
	key         nutrients.Key
	name        string
	decimals    int
	showPer100  bool
	per100Digit int
}

var (
	simplifiedRows = []simplifiedSpec{
		{nutrients.Energy, "Energía (kcal)", 0, true, 0},
		{nutrients.Protein, "Proteínas (g)", 1, false, 0},
		{nutrients.TotalFat, "Grasas totales (g)", 1, false, 0},
		{nutrients.SaturatedFat, "de las cuales saturadas (g)", 1, false, 0},
		{nutrients.Carbohydrate, "Hidratos de carbono disp. (g)", 1, false, 0},
		{nutrients.Sugars, "azúcares totales (g)", 1, false, 0},
		{nutrients.Sodium, "Sodio (mg)", 0, true, 0},
	}
	simplifiedFiber = simplifiedSpec{nutrients.Fiber, "Fibra alimentaria (g)", 1, true, 1}
	simplifiedTrans = simplifiedSpec{nutrients.TransFat, "Grasas trans (g)", 2, true, 2}
)

// Simplified builds the image rows. Sodium is printed with 0 decimals here,
// unlike the 1 decimal of the structured label.
func Simplified(in SimplifiedInput) SimplifiedLabel {
	specs := append([]simplifiedSpec{}, simplifiedRows...)
	if in.IncludeFiber {
		specs = append(specs, simplifiedFiber)
	}
	if in.IncludeTrans {
		specs = append(specs, simplifiedTrans)
	}

	serving := in.ServingText
	if serving == "" {
		serving = ServingText("", in.ServingSize)
	}

	rows := make([]SimplifiedRow, 0, len(specs))
	for _, spec := range specs {
		per100 := notShown
		if spec.showPer100 {
			per100 = formatFixed(in.Per100.Get(spec.key), spec.per100Digit)
		}
		rows = append(rows, SimplifiedRow{
			Nutrient:   spec.name,
			PerServing: formatFixed(in.PerServing.Get(spec.key), spec.decimals),
			Per100:     per100,
		})
	}

	return SimplifiedLabel{
		Title:                Title,
		Product:              in.ProductName,
		Serving:              serving,
		ServingsPerContainer: in.ServingsPerContainer,
		Headers:              [3]string{"Nutriente", fmt.Sprintf("Por %s g/ml", formatFixed(in.ServingSize, 0)), "Por 100 g/ml"},
		Rows:                 rows,
	}
}
