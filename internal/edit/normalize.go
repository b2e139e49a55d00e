package edit

import (
	"bytes"
	"fmt"
	"strings"
)

// Strategy selects how an edited sequence is reconciled with the reference
// window length.
type Strategy string

// Length normalization strategies.
const (
	ReportOnly    Strategy = "report-only"
	TrimSymmetric Strategy = "trim-symmetric"
	Pad           Strategy = "pad"
)

// DefaultFiller is the unknown-base symbol used for padding.
const DefaultFiller = 'N'

// ParseStrategy parses a strategy name. The empty string means ReportOnly.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return ReportOnly, nil
	case ReportOnly, TrimSymmetric, Pad:
		return st, nil
	}
	return ReportOnly, fmt.Errorf("unknown normalization strategy %q (want report-only, trim-symmetric or pad)", s)
}

// Normalizer reconciles edited sequence length with a target length.
type Normalizer struct {
	Strategy Strategy
	Filler   byte // padding symbol, DefaultFiller if zero
}

// Normalize returns seq adjusted to target under the configured strategy,
// and the signed difference len(seq)-target measured before adjustment.
//
// TrimSymmetric only shortens: it drops diff/2 bases from the start and the
// rest from the end. Pad only lengthens, appending filler. ReportOnly
// returns seq unchanged.
func (n Normalizer) Normalize(seq []byte, target int) ([]byte, int) {
	delta := len(seq) - target

	switch n.Strategy {
	case TrimSymmetric:
		if delta > 0 {
			head := delta / 2
			tail := delta - head
			return seq[head : len(seq)-tail], delta
		}
	case Pad:
		if delta < 0 {
			filler := n.Filler
			if filler == 0 {
				filler = DefaultFiller
			}
			return append(seq, bytes.Repeat([]byte{filler}, -delta)...), delta
		}
	}
	return seq, delta
}
