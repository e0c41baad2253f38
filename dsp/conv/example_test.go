package conv_test

import (
	"fmt"

	"github.com/cwbudde/algo-binaural/dsp/conv"
)

func ExampleOverlapAdd_ProcessCausal() {
	signal := []float64{1, 2, 3, 4, 5, 4, 3, 2, 1}
	kernel := []float64{0.25, 0.5, 0.25}

	oa, _ := conv.NewOverlapAdd(kernel, 4)
	result, _ := oa.ProcessCausal(signal)

	fmt.Printf("Input length: %d\n", len(signal))
	fmt.Printf("Output length: %d\n", len(result))
	fmt.Printf("First few values: %.2f, %.2f, %.2f\n", result[0], result[1], result[2])

	// Output:
	// Input length: 9
	// Output length: 9
	// First few values: 0.25, 1.00, 2.00
}
