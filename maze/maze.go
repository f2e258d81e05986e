package maze

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Cell is the state of one maze position.
type Cell uint8

const (
	Wall Cell = iota
	Open
	Start
	End
)

// String returns the classic single-character glyph for the cell.
func (c Cell) String() string {
	switch c {
	case Wall:
		return "#"
	case Open:
		return " "
	case Start:
		return "S"
	case End:
		return "E"
	default:
		return "?"
	}
}

// MarshalJSON encodes the cell as its numeric state so grids serialize as
// nested arrays rather than base64 byte strings.
func (c Cell) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(c), 10), nil
}

// UnmarshalJSON decodes a numeric cell state.
func (c *Cell) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseUint(string(data), 10, 8)
	if err != nil {
		return fmt.Errorf("invalid cell value %s", data)
	}
	*c = Cell(v)
	return nil
}

// Grid is a rows x cols maze. Corridors are carved on a 2-cell stride, so
// walls between parallel corridors are one cell thick.
type Grid [][]Cell

// NewGrid creates a rows x cols grid of walls.
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	for i := range g {
		g[i] = make([]Cell, cols)
	}
	return g
}

// Rows returns the number of rows in the grid.
func (g Grid) Rows() int {
	return len(g)
}

// Cols returns the number of columns in the grid.
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	c := make(Grid, len(g))
	for i, row := range g {
		c[i] = make([]Cell, len(row))
		copy(c[i], row)
	}
	return c
}

// InBounds reports whether the coordinate lies on the grid.
func (g Grid) InBounds(at Coord) bool {
	return at.Row >= 0 && at.Row < g.Rows() && at.Col >= 0 && at.Col < g.Cols()
}

// String renders the grid one row per line.
func (g Grid) String() string {
	var b strings.Builder
	for _, row := range g {
		for _, c := range row {
			b.WriteString(c.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Coord is a 0-indexed (row, column) position.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Path is a walk through the maze in traversal order, start and end
// inclusive. Consecutive coordinates differ by exactly one cardinal step.
type Path []Coord

// Stats contains counters for a single solve operation.
type Stats struct {
	Visited  int // cells entered during the search
	Duration time.Duration
}

var (
	// ErrInvalidBounds reports a configuration whose dimensions or start/end
	// coordinates do not describe a usable maze.
	ErrInvalidBounds = errors.New("invalid maze bounds")
	// ErrInvalidStart reports a solve start coordinate that is out of bounds
	// or on a wall. It is returned before any search runs.
	ErrInvalidStart = errors.New("invalid start position")
	// ErrNoPath reports that the search exhausted every reachable cell
	// without finding the end marker.
	ErrNoPath = errors.New("no path exists")
)

// cardinal holds the four directions in the solver's fixed probe order:
// east, west, south, north.
var cardinal = [4]Coord{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// Config contains configuration for maze generation.
type Config struct {
	Rows       int   // 0 means 10
	Cols       int   // 0 means 20
	Start      Coord // Start == End selects the default placement rule
	End        Coord
	RandomSeed int64 // 0 seeds from the current time
}

// DefaultConfig returns the reference configuration: a 10x20 maze entered at
// (0,1) and exited at (rows-1, cols-2).
func DefaultConfig() Config {
	return Config{Rows: 10, Cols: 20, Start: Coord{0, 1}, End: Coord{9, 18}}
}

// Generator carves mazes with a randomized depth-first traversal.
type Generator struct {
	config Config
	random *rand.Rand
}

// NewGenerator creates a generator, filling in defaults for zero-valued
// configuration fields. Start and End default as a pair: leaving both at the
// zero value places them at (0,1) and (rows-1, cols-2).
func NewGenerator(config Config) *Generator {
	if config.Rows == 0 {
		config.Rows = 10
	}
	if config.Cols == 0 {
		config.Cols = 20
	}
	if config.Start == config.End {
		config.Start = Coord{0, 1}
		config.End = Coord{config.Rows - 1, config.Cols - 2}
	}
	if config.RandomSeed == 0 {
		config.RandomSeed = time.Now().UnixNano()
	}
	return &Generator{
		config: config,
		random: rand.New(rand.NewSource(config.RandomSeed)),
	}
}

// Config returns the generator's effective configuration after defaults are
// applied.
func (gen *Generator) Config() Config {
	return gen.config
}

// carveFrame tracks one cell of the carving traversal and the shuffled
// directions still to try from it.
type carveFrame struct {
	at   Coord
	dirs [4]Coord
	next int
}

// Generate carves a maze into an all-wall grid. Start and End are marked
// first; carving then walks from Start on a 2-cell stride, shuffling the four
// directions at every cell and opening the intermediate and destination cells
// of each step whose destination is still a wall. Opened cells stay open, and
// carving never overwrites the Start or End markers.
//
// The End cell is never itself a carve destination, so it joins the corridor
// network only when carving opens one of its cardinal neighbors. With the
// default placement that is the common case, but for arbitrary start/end
// coordinates the End cell can remain sealed; Solve reports ErrNoPath for
// such a maze.
func (gen *Generator) Generate(ctx context.Context) (Grid, error) {
	cfg := gen.config
	if cfg.Rows < 2 || cfg.Cols < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBounds, cfg.Rows, cfg.Cols)
	}
	g := NewGrid(cfg.Rows, cfg.Cols)
	if !g.InBounds(cfg.Start) || !g.InBounds(cfg.End) {
		return nil, fmt.Errorf("%w: start %v end %v", ErrInvalidBounds, cfg.Start, cfg.End)
	}
	g[cfg.Start.Row][cfg.Start.Col] = Start
	g[cfg.End.Row][cfg.End.Col] = End

	stack := []carveFrame{{at: cfg.Start, dirs: gen.shuffledDirections()}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame := &stack[len(stack)-1]
		if frame.next == len(frame.dirs) {
			stack = stack[:len(stack)-1]
			continue
		}
		d := frame.dirs[frame.next]
		frame.next++
		dst := Coord{frame.at.Row + 2*d.Row, frame.at.Col + 2*d.Col}
		if !g.InBounds(dst) || g[dst.Row][dst.Col] != Wall {
			continue
		}
		mid := Coord{frame.at.Row + d.Row, frame.at.Col + d.Col}
		if g[mid.Row][mid.Col] == Wall {
			g[mid.Row][mid.Col] = Open
		}
		g[dst.Row][dst.Col] = Open
		stack = append(stack, carveFrame{at: dst, dirs: gen.shuffledDirections()})
	}
	return g, nil
}

// shuffledDirections returns the four cardinal directions in a fresh random
// order.
func (gen *Generator) shuffledDirections() [4]Coord {
	dirs := cardinal
	gen.random.Shuffle(len(dirs), func(i, j int) {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	})
	return dirs
}

// Solver finds paths through carved mazes.
type Solver struct{}

// NewSolver creates a Solver.
func NewSolver() *Solver {
	return &Solver{}
}

// solveFrame tracks one cell of the path search and the next direction to
// probe from it.
type solveFrame struct {
	at  Coord
	dir int
}

// Solve searches for a path from start to the End marker with a depth-first
// walk over the four cardinal neighbors, probing east, west, south, north in
// that order. The returned path lists the visited cells in traversal order,
// start first and End last; it is not necessarily the shortest route. The
// grid is read, never modified.
//
// A start coordinate that is out of bounds or on a wall returns
// ErrInvalidStart without searching. An exhausted search returns ErrNoPath.
func (s *Solver) Solve(ctx context.Context, g Grid, start Coord) (Path, Stats, error) {
	began := time.Now()
	stats := Stats{}
	if !g.InBounds(start) || g[start.Row][start.Col] == Wall {
		stats.Duration = time.Since(began)
		return nil, stats, fmt.Errorf("%w: %v", ErrInvalidStart, start)
	}

	visited := make([][]bool, g.Rows())
	for i := range visited {
		visited[i] = make([]bool, g.Cols())
	}
	visited[start.Row][start.Col] = true
	stats.Visited = 1
	path := Path{start}
	if g[start.Row][start.Col] == End {
		stats.Duration = time.Since(began)
		return path, stats, nil
	}

	stack := []solveFrame{{at: start}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(began)
			return nil, stats, err
		}
		frame := &stack[len(stack)-1]
		if frame.dir == len(cardinal) {
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
			continue
		}
		d := cardinal[frame.dir]
		frame.dir++
		next := Coord{frame.at.Row + d.Row, frame.at.Col + d.Col}
		if !g.InBounds(next) || visited[next.Row][next.Col] || g[next.Row][next.Col] == Wall {
			continue
		}
		visited[next.Row][next.Col] = true
		stats.Visited++
		path = append(path, next)
		if g[next.Row][next.Col] == End {
			stats.Duration = time.Since(began)
			return path, stats, nil
		}
		stack = append(stack, solveFrame{at: next})
	}

	stats.Duration = time.Since(began)
	return nil, stats, ErrNoPath
}
