package label

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes the structured label as a plain-text table
func Render(w io.Writer, l Label) error {
	var b strings.Builder
	fmt.Fprintln(&b, Title)
	if l.ProductName != "" {
		fmt.Fprintf(&b, "Producto: %s\n", l.ProductName)
	}
	fmt.Fprintf(&b, "Porción: %s\n", l.ServingText)
	fmt.Fprintf(&b, "Porciones por envase: %d\n", l.ServingsPerContainer)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\t100 g\t1 porción\t")
	for _, r := range l.Rows {
		name := r.DisplayName
		if r.Indent {
			name = "  " + name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", name, r.Per100Text(), r.PerServingText())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(l.Micronutrients) > 0 {
		fmt.Fprintln(&b, "Micronutrientes (por porción)")
		for _, m := range l.Micronutrients {
			fmt.Fprintln(&b, m.Text())
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSimplified writes the image rows as text, in the order the image draws them
func RenderSimplified(w io.Writer, l SimplifiedLabel) error {
	var b strings.Builder
	fmt.Fprintln(&b, l.Title)
	fmt.Fprintf(&b, "Producto: %s\n", l.Product)
	fmt.Fprintf(&b, "Porción: %s\n", l.Serving)
	fmt.Fprintf(&b, "Porciones por envase: %d\n", l.ServingsPerContainer)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Headers[0], l.Headers[1], l.Headers[2])
	for _, r := range l.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Nutrient, r.PerServing, r.Per100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())
	return err
}
