package domain

import "strings"

// Barcode formats:
//
//	TRIP-SEQ-PIECE  final barcode once the parcel is on a trip
//	TEMP-XXXXXXXX   temporary barcode assigned at intake
const TempBarcodePrefix = "TEMP-"

// IsTempBarcode reports whether code is a temporary intake barcode.
func IsTempBarcode(code string) bool {
	return strings.HasPrefix(code, TempBarcodePrefix)
}

// ParcelCodePrefix extracts the TRIP-SEQ portion of a full TRIP-SEQ-PIECE
// barcode, which identifies the parcel rather than the individual piece.
// Returns "" when the code does not carry a piece suffix: stripping a bare
// TRIP-SEQ would leave the trip alone and match any parcel on it.
func ParcelCodePrefix(code string) string {
	if IsTempBarcode(code) {
		return ""
	}
	if strings.Count(code, "-") < 2 {
		return ""
	}
	i := strings.LastIndex(code, "-")
	return code[:i]
}
