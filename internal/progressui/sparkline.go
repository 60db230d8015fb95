package progressui

import "strings"

// Sparkline renders a text-based throughput chart using Unicode block
// characters, a ring buffer of the most recent samples scaled against the
// buffer's observed maximum.
type Sparkline struct {
	samples []float64
	width   int
	head    int
	count   int
	max     float64
}

// SparklineChars are the 8 block-height levels used to render a sample.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// NewSparkline creates a sparkline holding width samples.
func NewSparkline(width int) *Sparkline {
	if width <= 0 {
		width = 60
	}
	return &Sparkline{samples: make([]float64, width), width: width}
}

// Add records a new sample.
func (s *Sparkline) Add(value float64) {
	s.samples[s.head] = value
	s.head = (s.head + 1) % s.width
	s.count++

	if value > s.max {
		s.max = value
	}
	if s.count%s.width == 0 {
		s.recalculateMax()
	}
}

func (s *Sparkline) recalculateMax() {
	s.max = 0
	for _, v := range s.samples {
		if v > s.max {
			s.max = v
		}
	}
	if s.max < 1 {
		s.max = 1
	}
}

// Render returns the sparkline at its full configured width.
func (s *Sparkline) Render() string {
	return s.RenderWithWidth(s.width)
}

// RenderWithWidth returns the sparkline rendered at the given width,
// showing only the most recent samples when width is narrower than the
// buffer.
func (s *Sparkline) RenderWithWidth(width int) string {
	if width <= 0 || width > s.width {
		width = s.width
	}
	if s.count == 0 {
		return strings.Repeat(string(SparklineChars[0]), width)
	}
	if s.max <= 0 {
		s.recalculateMax()
	}

	numSamples := min(s.count, s.width)
	start := 0
	if s.count >= s.width {
		start = s.head
	}
	skipCount := 0
	if numSamples > width {
		skipCount = numSamples - width
	}

	var sb strings.Builder
	sb.Grow(width * 3)
	rendered := 0
	for i := 0; i < s.width && rendered < width; i++ {
		if i < skipCount {
			continue
		}
		idx := (start + i) % s.width
		value := s.samples[idx]

		charIdx := 0
		if s.max > 0 {
			scaled := value / s.max
			charIdx = int(scaled * float64(len(SparklineChars)-1))
			if charIdx < 0 {
				charIdx = 0
			}
			if charIdx >= len(SparklineChars) {
				charIdx = len(SparklineChars) - 1
			}
		}

		if i >= numSamples && s.count < s.width {
			sb.WriteRune(' ')
		} else {
			sb.WriteRune(SparklineChars[charIdx])
		}
		rendered++
	}
	for rendered < width {
		sb.WriteRune(' ')
		rendered++
	}
	return sb.String()
}

// Clear resets the sparkline to empty.
func (s *Sparkline) Clear() {
	for i := range s.samples {
		s.samples[i] = 0
	}
	s.head = 0
	s.count = 0
	s.max = 0
}

// Count returns the number of samples added so far.
func (s *Sparkline) Count() int { return s.count }

// Max returns the current scaling maximum.
func (s *Sparkline) Max() float64 { return s.max }
