// Command gameserver is poker-core's process entrypoint: it wires every
// collaborator (clock, registry, broadcaster, matchmaker, variant catalog,
// session router, storage sinks, fraud service) and serves the gin HTTP API
// plus the gorilla/websocket upgrade handler, following the teacher's
// GameServer/handleWebSocket/handleMessage shape in cmd/game-server/main.go.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poker-core/internal/broadcast"
	"poker-core/internal/clock"
	"poker-core/internal/config"
	"poker-core/internal/events"
	"poker-core/internal/fraud"
	"poker-core/internal/matchmaker"
	"poker-core/internal/registry"
	"poker-core/internal/session"
	"poker-core/internal/storage"
	"poker-core/internal/storage/postgres"
	"poker-core/internal/table"
	"poker-core/internal/tournament"
	"poker-core/internal/variant"
	"poker-core/pkg/rng"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // cross-origin accepted; the userId query parameter is trusted as-is, with no authentication
	},
}

// envelope is the outer shape of every inbound socket frame: a "type"
// discriminator plus the rest of the payload, matching the teacher's
// msg["type"] switch in handleMessage but decoded into a concrete
// events.* struct instead of a bare map.
type envelope struct {
	Type string `json:"type"`
}

// decodeCommand parses one inbound frame into the concrete events.* command
// type session.Router.Dispatch expects, rejecting anything outside the
// closed set instead of forwarding a bare map.
func decodeCommand(raw []byte) (interface{}, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("gameserver: malformed frame: %w", err)
	}

	var cmd interface{}
	switch env.Type {
	case "join_game":
		cmd = &events.JoinGame{}
	case "request_seat":
		cmd = &events.RequestSeat{}
	case "join_table":
		cmd = &events.JoinTable{}
	case "host_self_seat":
		cmd = &events.HostSelfSeat{}
	case "player_action":
		cmd = &events.PlayerAction{}
	case "admin_action":
		cmd = &events.AdminAction{}
	case "join_queue":
		cmd = &events.JoinQueue{}
	case "leave_queue":
		cmd = &events.LeaveQueue{}
	case "check_queue_status":
		cmd = &events.CheckQueueStatus{}
	case "check_active_session":
		cmd = &events.CheckActiveSession{}
	case "check_active_status":
		cmd = &events.CheckActiveStatus{}
	case "register_tournament":
		cmd = &events.RegisterTournament{}
	case "unregister_tournament":
		cmd = &events.UnregisterTournament{}
	case "join_tournament_room":
		cmd = &events.JoinTournamentRoom{}
	case "get_tournament_state":
		cmd = &events.GetTournamentState{}
	case "tournament_admin_action":
		cmd = &events.TournamentAdminAction{}
	default:
		return nil, fmt.Errorf("gameserver: unrecognized frame type %q", env.Type)
	}

	if err := json.Unmarshal(raw, cmd); err != nil {
		return nil, fmt.Errorf("gameserver: malformed %s payload: %w", env.Type, err)
	}

	// session.Router.Dispatch switches on value types, not pointers.
	switch v := cmd.(type) {
	case *events.JoinGame:
		return *v, nil
	case *events.RequestSeat:
		return *v, nil
	case *events.JoinTable:
		return *v, nil
	case *events.HostSelfSeat:
		return *v, nil
	case *events.PlayerAction:
		return *v, nil
	case *events.AdminAction:
		return *v, nil
	case *events.JoinQueue:
		return *v, nil
	case *events.LeaveQueue:
		return *v, nil
	case *events.CheckQueueStatus:
		return *v, nil
	case *events.CheckActiveSession:
		return *v, nil
	case *events.CheckActiveStatus:
		return *v, nil
	case *events.RegisterTournament:
		return *v, nil
	case *events.UnregisterTournament:
		return *v, nil
	case *events.JoinTournamentRoom:
		return *v, nil
	case *events.GetTournamentState:
		return *v, nil
	case *events.TournamentAdminAction:
		return *v, nil
	default:
		return nil, fmt.Errorf("gameserver: unrecognized frame type %q", env.Type)
	}
}

// classifyError maps a Dispatch error to the wire ErrorKind taxonomy. Known
// sentinels get a precise kind; anything else is reported fatal rather than
// guessed at.
func classifyError(err error) events.ErrorKind {
	switch {
	case errors.Is(err, session.ErrRateLimited):
		return events.ErrorTransient
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, tournament.ErrUnknownTable),
		errors.Is(err, table.ErrPlayerNotFound):
		return events.ErrorNotFound
	case errors.Is(err, session.ErrUnknownCmd),
		errors.Is(err, session.ErrBadPayload):
		return events.ErrorValidation
	case errors.Is(err, table.ErrNotHost),
		errors.Is(err, tournament.ErrNotHost):
		return events.ErrorAuthorization
	case errors.Is(err, table.ErrTableFull),
		errors.Is(err, table.ErrAlreadySeated),
		errors.Is(err, table.ErrPaused),
		errors.Is(err, table.ErrHandInProgress),
		errors.Is(err, tournament.ErrWrongPhase),
		errors.Is(err, tournament.ErrAlreadyRegistered),
		errors.Is(err, tournament.ErrNotRegistered),
		errors.Is(err, tournament.ErrFull),
		errors.Is(err, tournament.ErrNotEnoughPlayers),
		errors.Is(err, matchmaker.ErrAlreadyQueued):
		return events.ErrorConflict
	default:
		return events.ErrorFatal
	}
}

// defaultCatalog is the variant set a fresh deployment offers. A real
// operator would load this from config; hardcoding it here keeps the
// entrypoint self-contained the way the teacher's NewGameServer hardcodes
// its single TableConfig.
func defaultCatalog() (*variant.Catalog, error) {
	return variant.NewCatalog([]variant.Variant{
		{
			Slug: "six_max", Name: "6-Max No-Limit Hold'em",
			MaxPlayers: 6, SmallBlind: 5, BigBlind: 10, StartingStack: 1000,
			Category: variant.CategoryCash, QueueTarget: 6,
		},
		{
			Slug: "heads_up", Name: "Heads-Up No-Limit Hold'em",
			MaxPlayers: 2, SmallBlind: 5, BigBlind: 10, StartingStack: 500,
			Category: variant.CategoryCash, QueueTarget: 2,
		},
		{
			Slug: "tournament_holdem", Name: "Tournament Hold'em",
			MaxPlayers: 9, SmallBlind: 25, BigBlind: 50, StartingStack: 10000,
			Category: variant.CategoryTournament, QueueTarget: 9,
		},
	})
}

// Server holds every long-lived collaborator and the live table/tournament
// directories cmd/gameserver owns, mirroring the teacher's GameServer
// struct but generalized across variants and tournaments.
type Server struct {
	cfg       config.Config
	clk       clock.Clock
	catalog   *variant.Catalog
	reg       *registry.Registry
	bcast     *broadcast.Broadcaster
	rngSystem *rng.System
	fraudSvc  *fraud.FraudService
	hands     *storage.HandHistoryProducer
	analytics *storage.ClickHouseAnalytics
	trnStore  *postgres.TournamentPostgresStorage
	router    *session.Router

	mu          sync.RWMutex
	tables      map[string]*table.Table
	tournaments map[string]*tournament.Tournament
	mm          *matchmaker.Matchmaker
}

func newServer(cfg config.Config) (*Server, error) {
	rngSystem, err := rng.NewSystem()
	if err != nil {
		return nil, fmt.Errorf("gameserver: init rng: %w", err)
	}
	catalog, err := defaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("gameserver: build variant catalog: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		clk:         clock.Real(),
		catalog:     catalog,
		reg:         registry.New(),
		bcast:       broadcast.New(),
		rngSystem:   rngSystem,
		fraudSvc:    newFraudService(),
		tables:      make(map[string]*table.Table),
		tournaments: make(map[string]*tournament.Tournament),
	}

	if hands, err := storage.NewHandHistoryProducer(storage.DefaultHandHistoryProducerConfig(cfg.KafkaBrokers)); err != nil {
		log.Printf("gameserver: hand-history Kafka producer unavailable, persistence disabled: %v", err)
	} else {
		s.hands = hands
	}

	chCtx, chCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer chCancel()
	if analytics, err := storage.NewClickHouseAnalytics(chCtx, storage.ClickHouseConfig{
		Host:         cfg.ClickHouseHost,
		Port:         cfg.ClickHousePort,
		Database:     cfg.ClickHouseDB,
		Username:     cfg.ClickHouseUser,
		Password:     cfg.ClickHousePass,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		ConnTimeout:  5 * time.Second,
	}); err != nil {
		log.Printf("gameserver: ClickHouse analytics unavailable, hand analytics disabled: %v", err)
	} else {
		s.analytics = analytics
	}

	if db, err := sql.Open("postgres", cfg.PostgresDSN); err != nil {
		log.Printf("gameserver: postgres unavailable, tournament persistence disabled: %v", err)
	} else if err := db.PingContext(context.Background()); err != nil {
		log.Printf("gameserver: postgres unreachable, tournament persistence disabled: %v", err)
		db.Close()
	} else {
		s.trnStore = postgres.NewTournamentPostgresStorage(db)
	}

	s.mm = matchmaker.New(matchmakerVariants(catalog), s.bcast, s.mintCashTable)
	s.router = session.New(s.clk, s.lookupTable, s.lookupTournament, s.mm, s.reg, s.bcast, cfg.RateLimitPerSecond)
	return s, nil
}

func matchmakerVariants(catalog *variant.Catalog) []matchmaker.Variant {
	var out []matchmaker.Variant
	for _, v := range catalog.All() {
		if v.Category == variant.CategoryTournament {
			continue
		}
		out = append(out, matchmaker.Variant{Slug: v.Slug, QueueTarget: v.QueueTarget})
	}
	return out
}

// newFraudService assembles the anti-cheat pipeline: timing, collusion, and
// rule detectors feeding one combined risk score, all driven entirely by the
// live action stream Table.FraudHook delivers — no fingerprint DB, IP
// tracker, or session store collaborators, since poker-core's opaque-userId
// model carries none of that data.
func newFraudService() *fraud.FraudService {
	return fraud.NewFraudService()
}

func (s *Server) lookupTable(id string) (*table.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	return t, ok
}

func (s *Server) lookupTournament(id string) (*tournament.Tournament, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	return t, ok
}

// mintCashTable is the matchmaker.TableFactory: it builds a fresh Table for
// a matched group of userIds, seating them in order, and starts it.
func (s *Server) mintCashTable(variantSlug string, userIDs []string) (string, error) {
	v, ok := s.catalog.Get(variantSlug)
	if !ok {
		return "", fmt.Errorf("gameserver: unknown variant %q", variantSlug)
	}
	tableID := uuid.NewString()
	tbl := s.buildTable(tableID, v, "", nil)
	tbl.Start()

	s.mu.Lock()
	s.tables[tableID] = tbl
	s.mu.Unlock()

	for _, userID := range userIDs {
		if err := tbl.Join(userID); err != nil {
			log.Printf("gameserver: seat %s at minted table %s: %v", userID, tableID, err)
		}
	}
	return tableID, nil
}

// buildTable constructs a Table from a Variant, wiring the fraud, analytics
// and hand-history hooks every table gets regardless of how it was created
// (matchmaker, host-created private table, or tournament allocation).
func (s *Server) buildTable(tableID string, v variant.Variant, hostID string, tournamentID *string) *table.Table {
	recorder := storage.NewTableRecorder(tableID, v.Slug, s.hands, s.analytics)
	return table.New(table.Config{
		TableID:         tableID,
		Variant:         v.Slug,
		MaxSeats:        v.MaxPlayers,
		HostID:          hostID,
		TournamentID:    tournamentID,
		SmallBlind:      v.SmallBlind,
		BigBlind:        v.BigBlind,
		TurnTimeout:     s.cfg.TurnTimeout,
		DisconnectGrace: s.cfg.DisconnectGrace,
		Clock:           s.clk,
		RNG:             s.rngSystem,
		Broadcaster:     s.bcast,
		Registry:        s.reg,
		HandHistoryHook: recorder.Record,
		FraudHook:       s.buildFraudHook(tableID),
	})
}

// buildFraudHook dispatches every submitted action to the shared
// FraudService, the same non-blocking side-call the teacher makes from
// handleMessage's "action" case, now carrying Table's own measured decision
// latency instead of a client-reported timing field.
func (s *Server) buildFraudHook(tableID string) func(userID string, action events.PlayerAction, decisionTime time.Duration) {
	return func(userID string, action events.PlayerAction, decisionTime time.Duration) {
		result := s.fraudSvc.ProcessPlayerAction(tableID, userID, action, decisionTime)
		if result != nil && result.RequiresAction {
			log.Printf("gameserver: fraud alert for %s at %s: %v", userID, tableID, result.RecommendedActions)
		}
	}
}

// createTournament builds a Tournament along with the TableFactory it needs
// to allocate its own tables, wiring the tournament's Postgres recorder into
// its broadcast room the same way a player's socket is attached.
func (s *Server) createTournament(hostID string, v variant.Variant) *tournament.Tournament {
	tournamentID := uuid.NewString()

	factory := func(spec tournament.TableSpec) (*table.Table, error) {
		tid := spec.TournamentID
		tbl := s.buildTable(spec.TableID, variant.Variant{
			Slug:       v.Slug,
			MaxPlayers: spec.MaxSeats,
			SmallBlind: spec.SmallBlind,
			BigBlind:   spec.BigBlind,
		}, "", &tid)
		tbl.Start()
		s.mu.Lock()
		s.tables[spec.TableID] = tbl
		s.mu.Unlock()
		return tbl, nil
	}

	trn := tournament.New(tournamentID, hostID, s.clk, s.bcast, factory)
	if s.trnStore != nil {
		s.bcast.Subscribe(tournamentID, "storage-recorder", storage.NewTournamentRecorder(tournamentID, s.trnStore))
	}
	trn.Start()

	s.mu.Lock()
	s.tournaments[tournamentID] = trn
	s.mu.Unlock()
	return trn
}

func (s *Server) handleWebSocket(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("gameserver: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	handle := s.reg.Register(userID, conn)
	socketID := uuid.NewString()
	s.router.OnConnect(userID)
	defer func() {
		s.reg.Unregister(userID, handle)
		if !s.reg.IsConnected(userID) {
			s.router.OnDisconnect(userID)
		}
	}()

	log.Printf("gameserver: %s connected (socket %s)", userID, socketID)

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("gameserver: websocket error for %s: %v", userID, err)
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		cmd, err := decodeCommand(raw)
		if err != nil {
			s.reg.Send(userID, events.ErrorEvent{Kind: events.ErrorValidation, Message: err.Error()})
			continue
		}

		if err := s.router.Dispatch(socketID, userID, cmd); err != nil {
			s.reg.Send(userID, events.ErrorEvent{Kind: classifyError(err), Message: err.Error()})
		}
	}
}

// registerRoutes wires the REST surface (table/tournament creation and
// lookup) and the websocket upgrade endpoint, mirroring the teacher's
// router.GET/POST calls in main().
func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/ws", s.handleWebSocket)

	router.GET("/variants", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.catalog.All())
	})

	router.POST("/tables", func(c *gin.Context) {
		var req struct {
			Variant string `json:"variant" binding:"required"`
			HostID  string `json:"hostId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		v, ok := s.catalog.Get(req.Variant)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown variant"})
			return
		}
		tableID := uuid.NewString()
		tbl := s.buildTable(tableID, v, req.HostID, nil)
		tbl.Start()
		s.mu.Lock()
		s.tables[tableID] = tbl
		s.mu.Unlock()
		c.JSON(http.StatusCreated, gin.H{"tableId": tableID})
	})

	router.POST("/tournaments", func(c *gin.Context) {
		var req struct {
			Variant string `json:"variant" binding:"required"`
			HostID  string `json:"hostId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		v, ok := s.catalog.Get(req.Variant)
		if !ok || v.Category != variant.CategoryTournament {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tournament variant"})
			return
		}
		trn := s.createTournament(req.HostID, v)
		c.JSON(http.StatusCreated, gin.H{"tournamentId": trn.ID()})
	})
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("gameserver: invalid configuration: %v", err)
	}
	if !cfg.IsProduction() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	server, err := newServer(cfg)
	if err != nil {
		log.Fatalf("gameserver: %v", err)
	}

	router := gin.Default()
	server.registerRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("gameserver: shutting down")
		server.mu.RLock()
		for _, tbl := range server.tables {
			tbl.Stop()
		}
		for _, trn := range server.tournaments {
			trn.Stop()
		}
		server.mu.RUnlock()
		os.Exit(0)
	}()

	log.Printf("gameserver: starting on port %s (env=%s)", cfg.Port, cfg.Env)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("gameserver: failed to start: %v", err)
	}
}
