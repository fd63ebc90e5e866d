package pcb

// Unit conversions used when reporting board dimensions
const (
	MilsPerMM  = 39.3701 // thousandths of an inch per millimeter
	MM2PerSqIn = 645.16  // square millimeters per square inch
	MMPerInch  = 25.4
)

// MMToMils converts millimeters to mils
func MMToMils(mm float64) float64 {
	return mm * MilsPerMM
}

// MM2ToSqIn converts square millimeters to square inches
func MM2ToSqIn(mm2 float64) float64 {
	return mm2 / MM2PerSqIn
}

// MMToInches converts millimeters to inches
func MMToInches(mm float64) float64 {
	return mm / MMPerInch
}
