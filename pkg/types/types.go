package types

// Color is an 8-bit sRGB triple. There is no alpha channel.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Annotation is a normalized recognition result: a label, logo or similar
// entity with its confidence in [0,1].
type Annotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// RawAnnotation is what an engine reports before normalization. Either field
// may be absent; absent entries are dropped by the normalizer.
type RawAnnotation struct {
	Description *string  `json:"description,omitempty"`
	Score       *float64 `json:"score,omitempty"`
}

// TextResult is the lower-cased full text of an image and its lines.
type TextResult struct {
	Text  string   `json:"text"`
	Lines []string `json:"lines"`
}

// ColorInfo is one dominant-color swatch reported by an image-properties call.
type ColorInfo struct {
	Red           float64 `json:"red"`
	Green         float64 `json:"green"`
	Blue          float64 `json:"blue"`
	Score         float64 `json:"score"`
	PixelFraction float64 `json:"pixel_fraction"`
}

// BoundingBox is an element's position and size in page pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a clip rectangle in page pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Corner is a named square region anchored at one corner of a bounding box.
type Corner struct {
	Name string `json:"name"`
	Rect Rect   `json:"rect"`
}

// StringPtr and Float64Ptr build RawAnnotation fields.
func StringPtr(s string) *string { return &s }

func Float64Ptr(f float64) *float64 { return &f }
