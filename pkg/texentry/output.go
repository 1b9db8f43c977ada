package texentry

import (
	"path/filepath"
	"strings"
)

// DeriveOutputPath names the entry for an input image:
// <outputDir>/<prefix><input base name without extension><suffix>.
// An empty outputDir places the entry next to the input.
func DeriveOutputPath(inputPath, outputDir, prefix, suffix string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}
	return filepath.Join(outputDir, prefix+stem+suffix)
}

// EntryName returns the output base name without its extension. It is the
// input of the name digest.
func EntryName(outputPath string) string {
	base := filepath.Base(outputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
