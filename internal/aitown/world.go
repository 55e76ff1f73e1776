package aitown

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/wricardo/aitown/internal/config"
	"github.com/wricardo/aitown/internal/historical"
	"github.com/wricardo/aitown/internal/pathfind"
	"github.com/wricardo/aitown/internal/store"
	"github.com/wricardo/aitown/internal/table"
)

// PlayerSpeed is how fast a player walks, in tiles per millisecond
// (one tile per second).
const PlayerSpeed = 1.0 / 1000.0

// World is the C6 engine.World implementation: it owns the map,
// players, locations, conversations and their members for every world
// this process drives, and applies the per-tick rules. One World
// value can back many (engineID -> worldID) pairs; per-step state is
// cached only for the lifetime of one engine transaction ("no
// in-memory cycles survive a tick boundary").
type World struct {
	worlds        store.Collection[WorldDoc]
	players       store.Collection[Player]
	locations     store.Collection[Location]
	conversations store.Collection[Conversation]
	members       store.Collection[ConversationMember]
	messages      store.Collection[Message]
	maps          *config.Manager
	log           *log.Logger

	mu sync.Mutex
	tx map[string]*txState
}

// Collections bundles the backing store collaborators World needs.
type Collections struct {
	Worlds        store.Collection[WorldDoc]
	Players       store.Collection[Player]
	Locations     store.Collection[Location]
	Conversations store.Collection[Conversation]
	Members       store.Collection[ConversationMember]
	Messages      store.Collection[Message]
}

// New creates a World bound to its store collections and map manager.
func New(c Collections, maps *config.Manager, logger *log.Logger) *World {
	if logger == nil {
		logger = log.Default()
	}
	return &World{
		worlds:        c.Worlds,
		players:       c.Players,
		locations:     c.Locations,
		conversations: c.Conversations,
		members:       c.Members,
		messages:      c.Messages,
		maps:          maps,
		log:           logger,
		tx:            make(map[string]*txState),
	}
}

// txState is the per-step snapshot: cyclic references
// (player -> location, conversation -> members) are resolved by id into
// plain tables at load time, and discarded once Flush commits.
type txState struct {
	world   WorldDoc
	mapDoc  *config.MapDoc
	grid    *pathfind.Grid

	players       *table.Table[Player]
	locations     *table.Table[Location]
	conversations *table.Table[Conversation]
	members       *table.Table[ConversationMember]
	messages      *table.Table[Message]

	histBuffers map[string]*historical.Buffer
}

func isActivePlayer(p Player) bool { return p.Active }
func isActiveLocation(Location) bool { return true }
func isActiveConversation(Conversation) bool { return true }
func isActiveMember(ConversationMember) bool { return true }
func isActiveMessage(Message) bool { return true }

// loadTx returns the cached per-step state for engineID, building it on
// first touch this step from the backing collections.
func (w *World) loadTx(ctx context.Context, engineID string) (*txState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if tx, ok := w.tx[engineID]; ok {
		return tx, nil
	}

	worlds, err := w.worlds.Query(ctx, func(_ string, d WorldDoc) bool { return d.EngineID == engineID })
	if err != nil {
		return nil, fmt.Errorf("aitown: querying world for engine %q: %w", engineID, err)
	}
	var worldDoc WorldDoc
	found := false
	for _, d := range worlds {
		worldDoc = d
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("aitown: no world registered for engine %q", engineID)
	}

	mapDoc, err := w.maps.LoadMap(worldDoc.MapID)
	if err != nil {
		return nil, fmt.Errorf("aitown: loading map %q: %w", worldDoc.MapID, err)
	}

	playerSeed, err := w.players.Query(ctx, func(_ string, p Player) bool { return p.WorldID == worldDoc.ID })
	if err != nil {
		return nil, err
	}
	playersTable := table.New[Player](w.players, isActivePlayer, playerSeed)

	locationIDs := make(map[string]struct{}, len(playerSeed))
	for _, p := range playerSeed {
		if p.LocationID != "" {
			locationIDs[p.LocationID] = struct{}{}
		}
	}
	locationSeed := make(map[string]Location, len(locationIDs))
	for id := range locationIDs {
		loc, ok, err := w.locations.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			locationSeed[id] = loc
		}
	}
	locationsTable := table.New[Location](w.locations, isActiveLocation, locationSeed)

	convSeed, err := w.conversations.Query(ctx, func(_ string, c Conversation) bool { return c.WorldID == worldDoc.ID })
	if err != nil {
		return nil, err
	}
	conversationsTable := table.New[Conversation](w.conversations, isActiveConversation, convSeed)

	convIDs := make(map[string]struct{}, len(convSeed))
	for id := range convSeed {
		convIDs[id] = struct{}{}
	}
	memberSeed, err := w.members.Query(ctx, func(_ string, m ConversationMember) bool {
		_, ok := convIDs[m.ConversationID]
		return ok
	})
	if err != nil {
		return nil, err
	}
	membersTable := table.New[ConversationMember](w.members, isActiveMember, memberSeed)

	messageSeed, err := w.messages.Query(ctx, func(_ string, m Message) bool {
		_, ok := convIDs[m.ConversationID]
		return ok
	})
	if err != nil {
		return nil, err
	}
	messagesTable := table.New[Message](w.messages, isActiveMessage, messageSeed)

	histBuffers := make(map[string]*historical.Buffer, len(locationSeed))
	for id, loc := range locationSeed {
		buf := historical.NewBuffer()
		buf.Seed("x", loc.X)
		buf.Seed("y", loc.Y)
		buf.Seed("dx", loc.DX)
		buf.Seed("dy", loc.DY)
		buf.Seed("velocity", loc.Velocity)
		histBuffers[id] = buf
	}

	tx := &txState{
		world:         worldDoc,
		mapDoc:        mapDoc,
		grid:          mapDoc.Grid(),
		players:       playersTable,
		locations:     locationsTable,
		conversations: conversationsTable,
		members:       membersTable,
		messages:      messagesTable,
		histBuffers:   histBuffers,
	}
	w.tx[engineID] = tx
	return tx, nil
}

// recordLocation applies fn to the location's tracked fields, marking it
// modified and appending a sample for every field that changed, per
// "before flush, for every tracked field on every modified
// record, append a sample".
func (tx *txState) recordLocation(id string, now int64, fn func(Location) Location) error {
	var recorded Location
	if err := tx.locations.Update(id, func(l Location) Location {
		recorded = fn(l)
		return recorded
	}); err != nil {
		return err
	}
	buf, ok := tx.histBuffers[id]
	if !ok {
		buf = historical.NewBuffer()
		tx.histBuffers[id] = buf
	}
	t := float64(now)
	buf.RecordIfChanged("x", t, recorded.X)
	buf.RecordIfChanged("y", t, recorded.Y)
	buf.RecordIfChanged("dx", t, recorded.DX)
	buf.RecordIfChanged("dy", t, recorded.DY)
	buf.RecordIfChanged("velocity", t, recorded.Velocity)
	return nil
}

// Flush implements engine.World: it packs every touched location's
// history buffer and saves every dirty table, then discards the
// per-step cache.
func (w *World) Flush(ctx context.Context, engineID string) error {
	w.mu.Lock()
	tx, ok := w.tx[engineID]
	w.mu.Unlock()
	if !ok {
		return nil // nothing touched this step
	}

	for id, buf := range tx.histBuffers {
		if buf.Empty() {
			continue
		}
		blob, err := buf.Pack()
		if err != nil {
			return fmt.Errorf("aitown: packing history for location %q: %w", id, err)
		}
		if err := tx.locations.Update(id, func(l Location) Location {
			l.History = blob
			return l
		}); err != nil {
			return err
		}
	}

	if err := tx.players.Save(ctx); err != nil {
		return fmt.Errorf("aitown: saving players: %w", err)
	}
	if err := tx.locations.Save(ctx); err != nil {
		return fmt.Errorf("aitown: saving locations: %w", err)
	}
	if err := tx.conversations.Save(ctx); err != nil {
		return fmt.Errorf("aitown: saving conversations: %w", err)
	}
	if err := tx.members.Save(ctx); err != nil {
		return fmt.Errorf("aitown: saving members: %w", err)
	}
	if err := tx.messages.Save(ctx); err != nil {
		return fmt.Errorf("aitown: saving messages: %w", err)
	}

	w.mu.Lock()
	delete(w.tx, engineID)
	w.mu.Unlock()
	return nil
}

// RegisterWorld creates a new World/engine pairing, used by transports
// when provisioning a fresh town.
func (w *World) RegisterWorld(ctx context.Context, worldID, engineID, mapID string, isDefault bool) error {
	return w.worlds.Insert(ctx, worldID, WorldDoc{
		ID:        worldID,
		EngineID:  engineID,
		MapID:     mapID,
		Status:    WorldRunning,
		IsDefault: isDefault,
	})
}
