// Package models defines data structures and domain types.
package models

import "slices"

var shapeMetrics = []string{
	"Principal Component 1",
	"Principal Component 2",
	"Principal Component 3",
	"Perimeter",
	"Area",
	"Convex Hull Area",
	"Convex Hull Perimeter",
	"Min Bounding Radius",
	"Max Bounding Radius",
	"Number of Surrounding Cells",
	"Spikiness",
	"Elongation",
	"Compactness (1)",
	"Compactness (2)",
	"Circularity (1)",
	"Circularity (2)",
	"Circularity (3)",
	"Circularity (4)",
	"Convexity (1)",
	"Convexity (2)",
	"Roughness (1)",
	"Roughness (2)",
	"Roughness (3)",
	"Mean Radial Distance",
	"Mean Radial Distance Crossings",
	"STD Radial Distance",
	"Entropy of Radial Distance",
	"Mean Intensity",
	"STD_Intensity",
	"Max Intensity",
	"Min Intensity",
	"Intensity Range",
	"Intensity Gradient Metric",
}

var haralickFeatures = []string{
	"Angular Second Moment",
	"Contrast",
	"Correlation",
	"Sum of Squares: Variance",
	"Inverse Difference Moment",
	"Sum Average",
	"Sum Variance",
	"Sum Entropy",
	"Entropy",
	"Difference Variance",
	"Difference Entropy",
	"Information Measure Correlation 1",
	"Information Measure Correlation 2",
	"Maximal Correlation Coefficient",
}

var haralickDirections = []string{"Direction 1", "Direction 2", "Direction 3", "Direction 4", "Mean"}

// MetricNames is the fixed catalog of metric names the backend computes, in
// the order the axis pickers list them.
var MetricNames = buildCatalog()

func buildCatalog() []string {
	names := slices.Clone(shapeMetrics)
	for _, dir := range haralickDirections {
		for _, feat := range haralickFeatures {
			names = append(names, "Haralick - "+feat+" ("+dir+")")
		}
	}
	return names
}
