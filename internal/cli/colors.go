package cli

import (
	"fmt"
	"os"
)

// ANSI codes used across commands. They are blanked when NO_COLOR is set.
var (
	Reset = "\033[0m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	White  = "\033[37m"
	Gray   = "\033[90m"

	Bold = "\033[1m"
	Dim  = "\033[2m"
)

// Predefined color combinations for consistency
var (
	HeaderStyle  = Cyan + Bold
	SuccessStyle = Green + Bold
	ErrorStyle   = Red + Bold
	WarningStyle = Yellow + Bold
	InfoStyle    = Blue + Bold
	LabelStyle   = Cyan
	ValueStyle   = White + Bold
	CountStyle   = Yellow + Bold
	DimStyle     = Dim
	MetaStyle    = Gray
)

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		disableColors()
	}
}

func disableColors() {
	for _, p := range []*string{
		&Reset, &Red, &Green, &Yellow, &Blue, &Cyan, &White, &Gray, &Bold, &Dim,
		&HeaderStyle, &SuccessStyle, &ErrorStyle, &WarningStyle, &InfoStyle,
		&LabelStyle, &ValueStyle, &CountStyle, &DimStyle, &MetaStyle,
	} {
		*p = ""
	}
}

func FormatHeader(text string) string {
	return HeaderStyle + text + Reset
}

func FormatSuccess(text string) string {
	return SuccessStyle + text + Reset
}

func FormatError(text string) string {
	return ErrorStyle + text + Reset
}

func FormatWarning(text string) string {
	return WarningStyle + text + Reset
}

func FormatInfo(text string) string {
	return InfoStyle + text + Reset
}

func FormatValue(text string) string {
	return ValueStyle + text + Reset
}

func FormatCount(count int) string {
	return CountStyle + fmt.Sprintf("%d", count) + Reset
}

func FormatDim(text string) string {
	return DimStyle + text + Reset
}

func FormatMeta(text string) string {
	return MetaStyle + text + Reset
}

// Format a label-value pair
func FormatLabelValue(label, value string) string {
	return LabelStyle + label + Reset + " " + ValueStyle + value + Reset
}

// Format a count with label
func FormatCountLabel(label string, count int) string {
	return LabelStyle + label + Reset + " " + CountStyle + fmt.Sprintf("%d", count) + Reset
}
