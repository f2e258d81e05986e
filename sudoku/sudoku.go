package sudoku

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Grid represents a square Sudoku board. A cell holds 0 when empty or a
// value in 1..Size(). The box size is the integer square root of the grid
// size, so valid sizes are perfect squares (4, 9, 16, ...).
type Grid [][]int

// Cell represents a position on the board.
type Cell struct {
	Row, Col int
}

// Stats contains counters for a single solve or generate operation.
type Stats struct {
	Nodes      int           // candidate values tried
	Backtracks int           // cells unwound after exhausting candidates
	Duration   time.Duration
}

var (
	// ErrInvalidSize reports a grid size that is not a perfect square >= 4.
	ErrInvalidSize = errors.New("grid size must be a perfect square >= 4")
	// ErrInvalidGrid reports a malformed board: ragged rows, out-of-range
	// values, or givens that already conflict.
	ErrInvalidGrid = errors.New("invalid grid")
	// ErrUnsolvable reports that the search space was exhausted without
	// finding a full assignment.
	ErrUnsolvable = errors.New("no solution exists")
)

// NewGrid creates an empty size x size grid.
func NewGrid(size int) Grid {
	g := make(Grid, size)
	for i := range g {
		g[i] = make([]int, size)
	}
	return g
}

// Size returns the number of rows (and columns) of the grid.
func (g Grid) Size() int {
	return len(g)
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	c := make(Grid, len(g))
	for i, row := range g {
		c[i] = make([]int, len(row))
		copy(c[i], row)
	}
	return c
}

// Filled returns the number of non-empty cells.
func (g Grid) Filled() int {
	n := 0
	for _, row := range g {
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

// boxSizeOf returns the integer square root of n, or 0 when n is not a
// perfect square.
func boxSizeOf(n int) int {
	for b := 1; b*b <= n; b++ {
		if b*b == n {
			return b
		}
	}
	return 0
}

// IsValidMove reports whether value can be placed at (row, col) without
// repeating in the row, the column, or the box containing the cell.
func IsValidMove(g Grid, row, col, value int) bool {
	size := g.Size()
	for i := 0; i < size; i++ {
		if g[row][i] == value || g[i][col] == value {
			return false
		}
	}
	box := boxSizeOf(size)
	startRow := row - row%box
	startCol := col - col%box
	for r := startRow; r < startRow+box; r++ {
		for c := startCol; c < startCol+box; c++ {
			if g[r][c] == value {
				return false
			}
		}
	}
	return true
}

// Validate checks the shape of the grid, the range of its values, and that
// no given value conflicts with another in its row, column, or box.
func Validate(g Grid) error {
	size := g.Size()
	box := boxSizeOf(size)
	if box < 2 {
		return ErrInvalidSize
	}
	for r, row := range g {
		if len(row) != size {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidGrid, r, len(row), size)
		}
		for c, v := range row {
			if v < 0 || v > size {
				return fmt.Errorf("%w: value %d at (%d,%d) out of range", ErrInvalidGrid, v, r, c)
			}
		}
	}
	for r := 0; r < size; r++ {
		seen := make([]bool, size+1)
		for c := 0; c < size; c++ {
			if v := g[r][c]; v != 0 {
				if seen[v] {
					return fmt.Errorf("%w: duplicate %d in row %d", ErrInvalidGrid, v, r)
				}
				seen[v] = true
			}
		}
	}
	for c := 0; c < size; c++ {
		seen := make([]bool, size+1)
		for r := 0; r < size; r++ {
			if v := g[r][c]; v != 0 {
				if seen[v] {
					return fmt.Errorf("%w: duplicate %d in column %d", ErrInvalidGrid, v, c)
				}
				seen[v] = true
			}
		}
	}
	for br := 0; br < size; br += box {
		for bc := 0; bc < size; bc += box {
			seen := make([]bool, size+1)
			for r := br; r < br+box; r++ {
				for c := bc; c < bc+box; c++ {
					if v := g[r][c]; v != 0 {
						if seen[v] {
							return fmt.Errorf("%w: duplicate %d in box (%d,%d)", ErrInvalidGrid, v, br/box, bc/box)
						}
						seen[v] = true
					}
				}
			}
		}
	}
	return nil
}

// emptyCells collects the empty cells in row-major order.
func emptyCells(g Grid) []Cell {
	var cells []Cell
	for r, row := range g {
		for c, v := range row {
			if v == 0 {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}

// Solver solves boards and counts solutions using backtracking over an
// explicit stack, so the search depth is bounded by the number of empty
// cells and cancellation can be observed between expansions.
type Solver struct{}

// NewSolver creates a Solver.
func NewSolver() *Solver {
	return &Solver{}
}

// Solve returns a solved copy of the grid. The input grid is never
// modified. It returns ErrUnsolvable when no full assignment exists, or the
// context error when cancelled mid-search.
func (s *Solver) Solve(ctx context.Context, g Grid) (Grid, Stats, error) {
	start := time.Now()
	stats := Stats{}
	if err := Validate(g); err != nil {
		stats.Duration = time.Since(start)
		return nil, stats, err
	}
	work := g.Clone()
	err := s.search(ctx, work, &stats)
	stats.Duration = time.Since(start)
	if err != nil {
		return nil, stats, err
	}
	return work, stats, nil
}

// search fills every empty cell of g in place. Cells are visited in
// row-major order; candidates are tried in ascending order. The cursor
// walks forward on a successful placement and backward after exhausting a
// cell, which reproduces the classic recursive backtracking order without
// recursion.
func (s *Solver) search(ctx context.Context, g Grid, stats *Stats) error {
	size := g.Size()
	empty := emptyCells(g)
	idx := 0
	for idx >= 0 && idx < len(empty) {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell := empty[idx]
		next := g[cell.Row][cell.Col] + 1
		g[cell.Row][cell.Col] = 0
		placed := false
		for v := next; v <= size; v++ {
			stats.Nodes++
			if IsValidMove(g, cell.Row, cell.Col, v) {
				g[cell.Row][cell.Col] = v
				placed = true
				break
			}
		}
		if placed {
			idx++
		} else {
			stats.Backtracks++
			idx--
		}
	}
	if idx < 0 {
		return ErrUnsolvable
	}
	return nil
}

// CountSolutions counts full assignments of the grid, stopping early once
// limit solutions have been found. A limit of 0 means count exhaustively.
// The input grid is never modified.
func (s *Solver) CountSolutions(ctx context.Context, g Grid, limit int) (int, Stats, error) {
	start := time.Now()
	stats := Stats{}
	if err := Validate(g); err != nil {
		stats.Duration = time.Since(start)
		return 0, stats, err
	}
	work := g.Clone()
	size := work.Size()
	empty := emptyCells(work)
	count := 0
	idx := 0
	for idx >= 0 {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return count, stats, err
		}
		if idx == len(empty) {
			count++
			if limit > 0 && count >= limit {
				break
			}
			// Keep enumerating: unwind to the last cell and resume
			// from its successor value.
			idx--
			continue
		}
		cell := empty[idx]
		next := work[cell.Row][cell.Col] + 1
		work[cell.Row][cell.Col] = 0
		placed := false
		for v := next; v <= size; v++ {
			stats.Nodes++
			if IsValidMove(work, cell.Row, cell.Col, v) {
				work[cell.Row][cell.Col] = v
				placed = true
				break
			}
		}
		if placed {
			idx++
		} else {
			stats.Backtracks++
			idx--
		}
	}
	stats.Duration = time.Since(start)
	return count, stats, nil
}

// Unique reports whether the grid has exactly one solution. The counting
// search short-circuits as soon as a second solution turns up.
func (s *Solver) Unique(ctx context.Context, g Grid) (bool, Stats, error) {
	count, stats, err := s.CountSolutions(ctx, g, 2)
	if err != nil {
		return false, stats, err
	}
	return count == 1, stats, nil
}

// Config contains configuration for the puzzle generator.
type Config struct {
	Size       int   // grid size; must be a perfect square >= 4; 0 means 9
	Removals   int   // removal attempt budget; <= 0 selects 40 for 9x9 boards and 4 otherwise
	RandomSeed int64 // 0 seeds from the current time
}

// DefaultConfig returns the reference configuration: a 9x9 board with the
// standard removal budget.
func DefaultConfig() Config {
	return Config{Size: 9}
}

// defaultRemovals returns the removal budget used when none is configured.
// The 40-for-9x9 ratio is a tunable, not a derived constant.
func defaultRemovals(size int) int {
	if size == 9 {
		return 40
	}
	return 4
}

// Puzzle is a generated board together with its unique solution.
type Puzzle struct {
	Board    Grid  `json:"board"`
	Solution Grid  `json:"solution"`
	Seed     int64 `json:"seed"`
	Removed  int   `json:"removed"`
}

// Generator creates puzzles that are guaranteed to have a unique solution
// at the moment generation completes.
type Generator struct {
	config Config
	solver *Solver
	random *rand.Rand
}

// NewGenerator creates a generator, filling in defaults for zero-valued
// configuration fields.
func NewGenerator(config Config) *Generator {
	if config.Size == 0 {
		config.Size = 9
	}
	if config.Removals <= 0 {
		config.Removals = defaultRemovals(config.Size)
	}
	if config.RandomSeed == 0 {
		config.RandomSeed = time.Now().UnixNano()
	}
	return &Generator{
		config: config,
		solver: NewSolver(),
		random: rand.New(rand.NewSource(config.RandomSeed)),
	}
}

// Generate produces a puzzle by solving an empty grid and then digging
// cells back out. The base solve is deterministic for a given size; all
// variation between puzzles comes from the randomized removal pass. Each
// unit of the removal budget picks a uniformly random filled cell, clears
// it, and keeps the hole only if the board still has a unique solution.
func (gen *Generator) Generate(ctx context.Context) (*Puzzle, Stats, error) {
	start := time.Now()
	stats := Stats{}
	size := gen.config.Size
	if boxSizeOf(size) < 2 {
		stats.Duration = time.Since(start)
		return nil, stats, ErrInvalidSize
	}

	solution, st, err := gen.solver.Solve(ctx, NewGrid(size))
	stats.Nodes += st.Nodes
	stats.Backtracks += st.Backtracks
	if err != nil {
		stats.Duration = time.Since(start)
		return nil, stats, err
	}

	board := solution.Clone()
	removed := 0
	for i := 0; i < gen.config.Removals; i++ {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return nil, stats, err
		}
		row := gen.random.Intn(size)
		col := gen.random.Intn(size)
		for board[row][col] == 0 {
			row = gen.random.Intn(size)
			col = gen.random.Intn(size)
		}
		value := board[row][col]
		board[row][col] = 0
		unique, st, err := gen.solver.Unique(ctx, board)
		stats.Nodes += st.Nodes
		stats.Backtracks += st.Backtracks
		if err != nil {
			stats.Duration = time.Since(start)
			return nil, stats, err
		}
		if unique {
			removed++
		} else {
			board[row][col] = value
		}
	}

	stats.Duration = time.Since(start)
	return &Puzzle{
		Board:    board,
		Solution: solution,
		Seed:     gen.config.RandomSeed,
		Removed:  removed,
	}, stats, nil
}

// String renders the grid with dots for empty cells and separator lines
// between boxes.
func (g Grid) String() string {
	size := g.Size()
	box := boxSizeOf(size)
	if box == 0 {
		box = size
	}
	width := len(fmt.Sprint(size))
	segment := strings.Repeat("-", box*(width+1))
	var b strings.Builder
	for r, row := range g {
		if r%box == 0 && r != 0 {
			for i := 0; i < box; i++ {
				if i != 0 {
					b.WriteByte('+')
				}
				b.WriteString(segment)
			}
			b.WriteByte('\n')
		}
		for c, v := range row {
			if c%box == 0 && c != 0 {
				b.WriteString("| ")
			}
			if v == 0 {
				b.WriteString(strings.Repeat(".", width))
				b.WriteByte(' ')
			} else {
				fmt.Fprintf(&b, "%*d ", width, v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// PrettyString renders the grid with box-drawing characters.
func (g Grid) PrettyString() string {
	size := g.Size()
	box := boxSizeOf(size)
	if box == 0 {
		box = size
	}
	width := len(fmt.Sprint(size))
	segment := strings.Repeat("─", box*(width+1)+1)
	line := func(left, mid, right string) string {
		parts := make([]string, box)
		for i := range parts {
			parts[i] = segment
		}
		return left + strings.Join(parts, mid) + right + "\n"
	}
	var b strings.Builder
	b.WriteString(line("┌", "┬", "┐"))
	for r, row := range g {
		if r%box == 0 && r != 0 {
			b.WriteString(line("├", "┼", "┤"))
		}
		b.WriteString("│ ")
		for c, v := range row {
			if c%box == 0 && c != 0 {
				b.WriteString("│ ")
			}
			if v == 0 {
				b.WriteString(strings.Repeat(".", width))
				b.WriteByte(' ')
			} else {
				fmt.Fprintf(&b, "%*d ", width, v)
			}
		}
		b.WriteString("│\n")
	}
	b.WriteString(line("└", "┴", "┘"))
	return b.String()
}
