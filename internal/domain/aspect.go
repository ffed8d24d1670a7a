package domain

import "strings"

// Aspect is a product dimension from the closed aspect set.
type Aspect string

const (
	AspectCamera       Aspect = "Camera"
	AspectBattery      Aspect = "Battery"
	AspectPerformance  Aspect = "Performance"
	AspectDisplay      Aspect = "Display"
	AspectValue        Aspect = "Value"
	AspectBuildQuality Aspect = "Build Quality"
	AspectOther        Aspect = "Other"
)

// RankedAspects lists the aspects that take part in scoring, in emission order.
// AspectOther is a sink and is never ranked.
var RankedAspects = []Aspect{
	AspectCamera,
	AspectBattery,
	AspectPerformance,
	AspectDisplay,
	AspectValue,
	AspectBuildQuality,
}

// Index returns the position of the aspect in RankedAspects, or len(RankedAspects) for Other and unknown values.
func (a Aspect) Index() int {
	for i, candidate := range RankedAspects {
		if candidate == a {
			return i
		}
	}
	return len(RankedAspects)
}

// Ranked reports whether the aspect belongs to the ranked set.
func (a Aspect) Ranked() bool {
	return a.Index() < len(RankedAspects)
}

// ParseAspect resolves a canonical label case-insensitively ("build quality", "Build_Quality").
func ParseAspect(label string) (Aspect, bool) {
	key := strings.ToLower(strings.Join(strings.FieldsFunc(label, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), " "))
	for _, a := range append(RankedAspects, AspectOther) {
		if strings.ToLower(string(a)) == key {
			return a, true
		}
	}
	return "", false
}
