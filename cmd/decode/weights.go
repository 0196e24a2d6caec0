package main

import "strconv"

// weightsFlag implements flag.Value for a repeatable -W F translation
// feature weight, one value per occurrence, per spec.md §6.
type weightsFlag []float64

func (w *weightsFlag) String() string {
	return "" // flag package only uses this for the zero-value default display
}

func (w *weightsFlag) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*w = append(*w, v)
	return nil
}
