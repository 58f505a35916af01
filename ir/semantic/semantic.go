package semantic

// Document is the semantic representation of a PDF.
type Document struct {
	Pages []*Page
	Info  *DocumentInfo
	Lang  string
}

// Page models a single PDF page.
type Page struct {
	Index     int
	MediaBox  Rectangle
	Resources *Resources
	Contents  []ContentStream
}

// ContentStream is a sequence of operations on a page.
type ContentStream struct {
	Operations []Operation
	RawBytes   []byte
}

// Operation represents a PDF operator and operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Operand is a type-safe operand value.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

type StringOperand struct{ Value []byte }

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) operand()     {}
func (ArrayOperand) Type() string { return "array" }

// Resources holds per-page resources.
type Resources struct {
	Fonts      map[string]*Font
	ExtGStates map[string]ExtGState
	XObjects   map[string]XObject
}

// Font represents a font resource: a simple single-byte font, or a Type0
// composite font when DescendantFont is set.
type Font struct {
	Subtype    string // Type1 (default), TrueType or Type0
	BaseFont   string
	Encoding   string
	FirstChar  int
	Widths     []int // widths for FirstChar..FirstChar+len-1, glyph space units
	Descriptor *FontDescriptor

	DescendantFont *CIDFont
	ToUnicode      map[int][]rune // CID -> text, written as a ToUnicode CMap
}

// CIDSystemInfo describes the registry/ordering of a CID font.
type CIDSystemInfo struct {
	Registry   string
	Ordering   string
	Supplement int
}

// CIDFont describes a descendant font for Type0 fonts.
type CIDFont struct {
	Subtype         string // CIDFontType2
	BaseFont        string
	CIDSystemInfo   CIDSystemInfo
	DW              int
	W               map[int]int // CID -> width
	CIDToGIDMapName string      // e.g. Identity
	Descriptor      *FontDescriptor
}

// FontDescriptor carries metrics and font file embedding details.
type FontDescriptor struct {
	FontName     string
	Flags        int
	ItalicAngle  float64
	Ascent       float64
	Descent      float64
	CapHeight    float64
	StemV        int
	FontBBox     [4]float64
	FontFile     []byte
	FontFileType string // FontFile2 (TrueType)
}

// ExtGState captures graphics state parameters such as transparency.
type ExtGState struct {
	LineWidth   *float64
	StrokeAlpha *float64
	FillAlpha   *float64
}

// DeviceColorSpace names a device colour space (DeviceRGB, DeviceGray).
type DeviceColorSpace struct {
	Name string
}

// ColorSpaceName returns the PDF name of the colour space.
func (cs DeviceColorSpace) ColorSpaceName() string { return cs.Name }

// XObject describes an image XObject.
type XObject struct {
	Subtype          string // Image
	Width            int
	Height           int
	ColorSpace       DeviceColorSpace
	BitsPerComponent int
	Data             []byte
	Filter           string // Optional: pre-encoded data filter (e.g. DCTDecode)
	Interpolate      bool
	SMask            *XObject
}

// Image is an alias for XObject for image convenience APIs.
type Image = XObject

// Rectangle represents a PDF rectangle.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent of r.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent of r.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// DocumentInfo models /Info dictionary values.
type DocumentInfo struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
	Keywords []string
}
