package puzzlefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/puzzles-in-golang/maze"
	"github.com/sandeepkv93/puzzles-in-golang/sudoku"
	"github.com/sandeepkv93/puzzles-in-golang/wordladder"
)

// Event kinds pushed over the websocket feed.
const (
	KindSudokuPuzzle   = "sudoku.puzzle"
	KindSudokuSolution = "sudoku.solution"
	KindMazeGrid       = "maze.grid"
	KindMazePath       = "maze.path"
	KindWordLadder     = "wordladder.ladder"
)

// Upper bounds on client-supplied dimensions. The request context bounds
// search time but not allocation, so oversized parameters are rejected
// before any engine runs.
const (
	maxSudokuSize     = 25
	maxSudokuRemovals = maxSudokuSize * maxSudokuSize
	maxMazeRows       = 1024
	maxMazeCols       = 1024
	maxLadderWords    = 10000
	maxLadderLength   = 100
)

// Event is one puzzle result. Every API response body is an Event, and the
// same Event is pushed to all websocket subscribers.
type Event struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
	Payload   interface{} `json:"payload"`
}

// SudokuSolveResult is the payload for KindSudokuSolution events. Solved is
// false when the posted board has no solution.
type SudokuSolveResult struct {
	Solved bool        `json:"solved"`
	Grid   sudoku.Grid `json:"grid,omitempty"`
	Nodes  int         `json:"nodes"`
}

// MazeResult is the payload for KindMazeGrid events.
type MazeResult struct {
	Grid     maze.Grid  `json:"grid"`
	Rendered []string   `json:"rendered"`
	Start    maze.Coord `json:"start"`
	End      maze.Coord `json:"end"`
	Seed     int64      `json:"seed"`
}

// MazeSolveResult is the payload for KindMazePath events. Found is false
// when the end marker is unreachable from the posted start.
type MazeSolveResult struct {
	Found   bool      `json:"found"`
	Path    maze.Path `json:"path,omitempty"`
	Visited int       `json:"visited"`
}

// LadderResult is the payload for KindWordLadder events: a generated word
// list and the shortest ladder between its first and last words.
type LadderResult struct {
	Words  []string `json:"words"`
	Found  bool     `json:"found"`
	Ladder []string `json:"ladder,omitempty"`
	Seed   int64    `json:"seed"`
}

type sudokuGenerateRequest struct {
	Size     int   `json:"size"`
	Removals int   `json:"removals"`
	Seed     int64 `json:"seed"`
}

type sudokuSolveRequest struct {
	Grid sudoku.Grid `json:"grid"`
}

type mazeGenerateRequest struct {
	Rows int   `json:"rows"`
	Cols int   `json:"cols"`
	Seed int64 `json:"seed"`
}

type mazeSolveRequest struct {
	Grid  maze.Grid  `json:"grid"`
	Start maze.Coord `json:"start"`
}

type ladderGenerateRequest struct {
	Words  int   `json:"words"`
	Length int   `json:"length"`
	Seed   int64 `json:"seed"`
}

// connection is one websocket subscriber.
type connection struct {
	ID        string
	Conn      *websocket.Conn
	SendQueue chan []byte
}

// Config contains configuration for the feed server.
type Config struct {
	Addr           string        // listen address; "" means ":8080"
	RandomSeed     int64         // seeds the per-request seed stream; 0 means current time
	SendQueueSize  int           // per-subscriber outgoing buffer; 0 means 100
	PingInterval   time.Duration // websocket ping cadence; 0 means 30s
	RequestTimeout time.Duration // engine budget per request; 0 means 10s
	LogLevel       string        // logrus level; "" means info
}

// DefaultConfig returns default configuration for the feed server.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		SendQueueSize:  100,
		PingInterval:   30 * time.Second,
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
	}
}

// Server generates and solves puzzles over a read-only HTTP JSON API and
// pushes every result to websocket subscribers. It holds no game state:
// each request is answered from fresh engine runs.
type Server struct {
	config       Config
	log          *logrus.Logger
	handler      http.Handler
	httpServer   *http.Server
	upgrader     websocket.Upgrader
	sudokuSolver *sudoku.Solver
	mazeSolver   *maze.Solver
	connections  map[string]*connection
	connMutex    sync.RWMutex
	seeds        *rand.Rand
	seedMutex    sync.Mutex
	running      bool
	mutex        sync.Mutex
}

// NewServer creates a feed server, filling in defaults for zero-valued
// configuration fields.
func NewServer(config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.SendQueueSize == 0 {
		config.SendQueueSize = 100
	}
	if config.PingInterval == 0 {
		config.PingInterval = 30 * time.Second
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.RandomSeed == 0 {
		config.RandomSeed = time.Now().UnixNano()
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(config.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	s := &Server{
		config:       config,
		log:          logger,
		sudokuSolver: sudoku.NewSolver(),
		mazeSolver:   maze.NewSolver(),
		connections:  make(map[string]*connection),
		seeds:        rand.New(rand.NewSource(config.RandomSeed)),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sudoku/generate", s.handleSudokuGenerate)
	mux.HandleFunc("/api/sudoku/solve", s.handleSudokuSolve)
	mux.HandleFunc("/api/maze/generate", s.handleMazeGenerate)
	mux.HandleFunc("/api/maze/solve", s.handleMazeSolve)
	mux.HandleFunc("/api/wordladder/generate", s.handleWordLadderGenerate)
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.handler = s.requestLogger(mux)

	return s
}

// ServeHTTP serves the feed's API, so a Server can back any http.Server or
// test harness directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return errors.New("server is already running")
	}
	s.running = true

	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("http server")
		}
	}()

	s.log.WithField("addr", s.config.Addr).Info("puzzle feed listening")
	return nil
}

// Stop closes all subscriber connections and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return errors.New("server is not running")
	}
	s.running = false

	s.connMutex.Lock()
	for _, sub := range s.connections {
		sub.Conn.Close()
	}
	s.connMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	s.log.Info("puzzle feed stopped")
	return nil
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// requestLogger logs one line per API request. Websocket upgrades pass
// through unwrapped so the underlying connection stays hijackable.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("http")
	})
}

// nextSeed draws a seed for requests that did not supply one. The stream is
// itself seeded by Config.RandomSeed, so a fixed server seed reproduces the
// same sequence of puzzles.
func (s *Server) nextSeed() int64 {
	s.seedMutex.Lock()
	defer s.seedMutex.Unlock()
	return s.seeds.Int63()
}

// publish wraps a payload in an Event and queues it to every subscriber.
// Slow subscribers whose queues are full miss the event.
func (s *Server) publish(kind string, payload interface{}) Event {
	event := Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.WithError(err).Error("marshal event")
		return event
	}

	s.connMutex.RLock()
	defer s.connMutex.RUnlock()
	for _, sub := range s.connections {
		select {
		case sub.SendQueue <- data:
		default:
		}
	}
	return event
}

// respond writes the event as the JSON response body.
func (s *Server) respond(w http.ResponseWriter, event Event) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(event); err != nil {
		s.log.WithError(err).Error("encode response")
	}
}

// writeEngineError maps engine sentinels onto HTTP status codes. Exhausted
// searches are not errors at this boundary; handlers turn those into
// explicit not-solved payloads before reaching here.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sudoku.ErrInvalidSize),
		errors.Is(err, sudoku.ErrInvalidGrid),
		errors.Is(err, maze.ErrInvalidBounds),
		errors.Is(err, maze.ErrInvalidStart):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleSudokuGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sudokuGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Size > maxSudokuSize {
		http.Error(w, fmt.Sprintf("size must be at most %d", maxSudokuSize), http.StatusBadRequest)
		return
	}
	if req.Removals > maxSudokuRemovals {
		http.Error(w, fmt.Sprintf("removals must be at most %d", maxSudokuRemovals), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	seed := req.Seed
	if seed == 0 {
		seed = s.nextSeed()
	}
	gen := sudoku.NewGenerator(sudoku.Config{Size: req.Size, Removals: req.Removals, RandomSeed: seed})
	puzzle, stats, err := gen.Generate(ctx)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"seed":     puzzle.Seed,
		"removed":  puzzle.Removed,
		"duration": stats.Duration,
	}).Debug("generated sudoku puzzle")
	s.respond(w, s.publish(KindSudokuPuzzle, puzzle))
}

func (s *Server) handleSudokuSolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sudokuSolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	solved, stats, err := s.sudokuSolver.Solve(ctx, req.Grid)
	var result SudokuSolveResult
	switch {
	case err == nil:
		result = SudokuSolveResult{Solved: true, Grid: solved, Nodes: stats.Nodes}
	case errors.Is(err, sudoku.ErrUnsolvable):
		result = SudokuSolveResult{Solved: false, Nodes: stats.Nodes}
	default:
		s.writeEngineError(w, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"solved":   result.Solved,
		"nodes":    stats.Nodes,
		"duration": stats.Duration,
	}).Debug("solved sudoku board")
	s.respond(w, s.publish(KindSudokuSolution, result))
}

func (s *Server) handleMazeGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req mazeGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Rows > maxMazeRows || req.Cols > maxMazeCols {
		http.Error(w, fmt.Sprintf("maze size must be at most %dx%d", maxMazeRows, maxMazeCols), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	seed := req.Seed
	if seed == 0 {
		seed = s.nextSeed()
	}
	gen := maze.NewGenerator(maze.Config{Rows: req.Rows, Cols: req.Cols, RandomSeed: seed})
	g, err := gen.Generate(ctx)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	cfg := gen.Config()
	result := MazeResult{
		Grid:     g,
		Rendered: renderMaze(g),
		Start:    cfg.Start,
		End:      cfg.End,
		Seed:     cfg.RandomSeed,
	}
	s.log.WithFields(logrus.Fields{
		"rows": cfg.Rows,
		"cols": cfg.Cols,
		"seed": cfg.RandomSeed,
	}).Debug("generated maze")
	s.respond(w, s.publish(KindMazeGrid, result))
}

func (s *Server) handleMazeSolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req mazeSolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !rectangular(req.Grid) {
		http.Error(w, "grid must be rectangular and non-empty", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	path, stats, err := s.mazeSolver.Solve(ctx, req.Grid, req.Start)
	var result MazeSolveResult
	switch {
	case err == nil:
		result = MazeSolveResult{Found: true, Path: path, Visited: stats.Visited}
	case errors.Is(err, maze.ErrNoPath):
		result = MazeSolveResult{Found: false, Visited: stats.Visited}
	default:
		s.writeEngineError(w, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"found":   result.Found,
		"visited": stats.Visited,
	}).Debug("solved maze")
	s.respond(w, s.publish(KindMazePath, result))
}

func (s *Server) handleWordLadderGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ladderGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Words > maxLadderWords || req.Length > maxLadderLength {
		http.Error(w, fmt.Sprintf("word list is capped at %d words of length %d", maxLadderWords, maxLadderLength), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	seed := req.Seed
	if seed == 0 {
		seed = s.nextSeed()
	}
	gen := wordladder.NewGenerator(wordladder.Config{Words: req.Words, Length: req.Length, RandomSeed: seed})
	words := gen.GenerateWords()
	dict := wordladder.NewDictionary(words)

	ladder, stats, err := wordladder.FindShortestPath(ctx, dict, words[0], words[len(words)-1])
	var result LadderResult
	switch {
	case err == nil:
		result = LadderResult{Words: words, Found: true, Ladder: ladder, Seed: seed}
	case errors.Is(err, wordladder.ErrNoPath):
		result = LadderResult{Words: words, Found: false, Seed: seed}
	default:
		s.writeEngineError(w, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"words":    len(words),
		"found":    result.Found,
		"expanded": stats.Expanded,
	}).Debug("generated word ladder")
	s.respond(w, s.publish(KindWordLadder, result))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("websocket upgrade")
		return
	}

	sub := &connection{
		ID:        uuid.New().String(),
		Conn:      conn,
		SendQueue: make(chan []byte, s.config.SendQueueSize),
	}
	s.connMutex.Lock()
	s.connections[sub.ID] = sub
	s.connMutex.Unlock()
	s.log.WithField("connection", sub.ID).Info("feed subscriber connected")

	go s.serveConnection(sub)
}

func (s *Server) serveConnection(sub *connection) {
	defer func() {
		sub.Conn.Close()
		s.connMutex.Lock()
		delete(s.connections, sub.ID)
		s.connMutex.Unlock()
		s.log.WithField("connection", sub.ID).Info("feed subscriber disconnected")
	}()

	go s.sender(sub)

	// The feed is one-way; inbound frames only keep the connection alive.
	for {
		if _, _, err := sub.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) sender(sub *connection) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-sub.SendQueue:
			if err := sub.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := sub.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// renderMaze returns the maze as glyph lines for display clients.
func renderMaze(g maze.Grid) []string {
	lines := make([]string, g.Rows())
	for i, row := range g {
		var b strings.Builder
		for _, c := range row {
			b.WriteString(c.String())
		}
		lines[i] = b.String()
	}
	return lines
}

// rectangular reports whether the grid is non-empty with equal-length rows.
// The maze solver indexes rows by the first row's width, so ragged input is
// rejected at the API boundary.
func rectangular(g maze.Grid) bool {
	if len(g) == 0 || len(g[0]) == 0 {
		return false
	}
	for _, row := range g {
		if len(row) != len(g[0]) {
			return false
		}
	}
	return true
}
