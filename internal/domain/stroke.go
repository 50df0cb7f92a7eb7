package domain

type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

// StrokeSegment is one immutable whiteboard line segment. There is no stroke
// id: the canvas itself is the only persisted state, so replaying the same
// segment twice visibly double-draws.
type StrokeSegment struct {
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Color string  `json:"color"`
	Width float64 `json:"size"`
	Tool  Tool    `json:"tool"`
}
