package tournament

import (
	"sort"

	"poker-core/internal/events"
	"poker-core/internal/table"
)

// NotifyElimination is the hook a tournament table's OnElimination callback
// invokes when a hand settles leaving a participant at 0 chips. It runs on
// the table's own goroutine, so it enqueues into the tournament's mailbox
// rather than touching tournament state directly.
func (tr *Tournament) NotifyElimination(tableID, userID string) {
	tr.enqueue(func() { tr.onElimination(userID) })
}

func (tr *Tournament) onElimination(userID string) {
	p := tr.participants[userID]
	if p == nil || p.Status != ParticipantActive {
		return
	}
	p.Status = ParticipantEliminated
	now := tr.clk.Now()
	p.EliminatedAt = &now
	// activeCount no longer counts p, since its status just flipped: this is
	// "currentActiveCount before this elimination" expressed the other way.
	p.FinishPosition = tr.activeCount() + 1
	playersEliminatedTotal.WithLabelValues("busted").Inc()
	tr.publish(events.TournamentPlayerEliminated{
		TournamentID:   tr.id,
		UserID:         userID,
		FinishPosition: p.FinishPosition,
	})
	tr.checkCompletion()
}

// NotifyPostHand is the hook a tournament table's OnPostHand callback
// invokes after every settlement, the trigger for balancing and merging.
func (tr *Tournament) NotifyPostHand(tableID string) {
	tr.enqueue(func() {
		tr.maybeMergeLoop()
		tr.maybeBalance()
	})
}

// IdleTick is the alternative balancing trigger for a deployment that also
// wants to rebalance tables that have gone quiet (e.g. everyone folds
// instantly for several hands with no elimination).
func (tr *Tournament) IdleTick() {
	tr.enqueue(func() {
		tr.maybeMergeLoop()
		tr.maybeBalance()
	})
}

type tableSize struct {
	id   string
	tbl  *table.Table
	size int
}

func (tr *Tournament) tableSizes() []tableSize {
	out := make([]tableSize, 0, len(tr.tables))
	for id, tbl := range tr.tables {
		out = append(out, tableSize{id: id, tbl: tbl, size: tbl.OccupiedSeats()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].size > out[j].size })
	return out
}

// maybeBalance moves exactly one player from the biggest table to the
// smallest when imbalance >= 2, choosing the seat farthest clockwise from
// the source table's button so a pending blind post is never interrupted.
func (tr *Tournament) maybeBalance() {
	if len(tr.tables) < 2 {
		return
	}
	sizes := tr.tableSizes()
	biggest, smallest := sizes[0], sizes[len(sizes)-1]
	if biggest.size-smallest.size < 2 {
		return
	}
	userID := chooseFarthestFromButton(biggest.tbl)
	if userID == "" {
		return
	}
	chips, err := biggest.tbl.ForceVacateForTransfer(userID)
	if err != nil {
		// Mid-hand; the next post-hand hook or idle tick retries.
		return
	}
	seat, err := smallest.tbl.SeatWithStack(userID, chips)
	if err != nil {
		_, _ = biggest.tbl.SeatWithStack(userID, chips)
		return
	}
	if p := tr.participants[userID]; p != nil {
		p.CurrentTableID = smallest.id
		p.CurrentSeat = seat
		p.CurrentStack = chips
	}
	tr.publish(events.TournamentPlayerTransferred{
		UserID:        userID,
		SourceTableID: biggest.id,
		TargetTableID: smallest.id,
		TargetSeat:    seat,
	})
	tablesBalancedTotal.Inc()
	tr.publish(events.TournamentTablesBalanced{TournamentID: tr.id})
}

// chooseFarthestFromButton picks the occupant whose seat is farthest
// clockwise from the table's button, wrapping modulo its seat count.
func chooseFarthestFromButton(tbl *table.Table) string {
	snap := tbl.Snapshot()
	if len(snap) == 0 {
		return ""
	}
	button := tbl.ButtonSeat()
	maxSeats := tbl.MaxSeats()
	best := snap[0].UserID
	bestDist := -1
	for _, s := range snap {
		dist := ((s.Seat-button)%maxSeats + maxSeats) % maxSeats
		if dist > bestDist {
			bestDist = dist
			best = s.UserID
		}
	}
	return best
}

// maybeMergeLoop repeatedly merges the smallest table into the others until
// no merge condition holds, so a single elimination that should cascade into
// several consolidations (down to a final table) converges in one pass.
func (tr *Tournament) maybeMergeLoop() {
	for tr.maybeMergeOnce() {
	}
}

func (tr *Tournament) maybeMergeOnce() bool {
	tables := len(tr.tables)
	if tables <= 1 {
		return false
	}
	maxPerTable := tr.settings.MaxPlayersPerTable
	if tr.activeCount() > (tables-1)*maxPerTable {
		return false
	}

	sizes := tr.tableSizes()
	emptiedID := sizes[len(sizes)-1].id
	emptied := tr.tables[emptiedID]
	destinations := sizes[:len(sizes)-1]

	for _, s := range emptied.Snapshot() {
		dst := pickDestination(destinations, tr.tables, maxPerTable)
		if dst == nil {
			continue // all destinations full; should not happen given the guard above
		}
		chips, err := emptied.ForceVacateForTransfer(s.UserID)
		if err != nil {
			continue
		}
		seat, err := dst.SeatWithStack(s.UserID, chips)
		if err != nil {
			_, _ = emptied.SeatWithStack(s.UserID, chips)
			continue
		}
		if p := tr.participants[s.UserID]; p != nil {
			p.CurrentTableID = dst.ID()
			p.CurrentSeat = seat
			p.CurrentStack = chips
		}
		tr.publish(events.TournamentPlayerTransferred{
			UserID:        s.UserID,
			SourceTableID: emptiedID,
			TargetTableID: dst.ID(),
			TargetSeat:    seat,
		})
	}

	delete(tr.tables, emptiedID)
	emptied.Stop()
	tr.bcast.CloseRoom(emptiedID)
	tablesMergedTotal.Inc()
	tr.publish(events.TournamentTablesMerged{TournamentID: tr.id})
	return true
}

// pickDestination returns the currently-smallest table with a free seat,
// re-measuring occupancy live since sizes may be stale mid-redistribution.
func pickDestination(candidates []tableSize, live map[string]*table.Table, maxPerTable int) *table.Table {
	var best *table.Table
	bestSize := maxPerTable + 1
	for _, c := range candidates {
		tbl := live[c.id]
		if tbl == nil {
			continue
		}
		n := tbl.OccupiedSeats()
		if n < maxPerTable && n < bestSize {
			best = tbl
			bestSize = n
		}
	}
	return best
}

// checkCompletion ends the tournament once a single active participant
// remains.
func (tr *Tournament) checkCompletion() {
	if tr.activeCount() != 1 {
		return
	}
	var winnerID string
	for _, p := range tr.participants {
		if p.Status == ParticipantActive {
			p.FinishPosition = 1
			winnerID = p.UserID
		}
	}
	tr.status = StatusCompleted
	tr.cancelBlindTimers()
	tr.closeAllTables()
	completedTotal.Inc()
	tr.publish(events.TournamentCompleted{
		TournamentID: tr.id,
		WinnerID:     winnerID,
		Results:      tr.buildResults(),
	})
}

func (tr *Tournament) buildResults() []events.TournamentResult {
	out := make([]events.TournamentResult, 0, len(tr.participants))
	for _, p := range tr.participants {
		out = append(out, events.TournamentResult{UserID: p.UserID, FinishPosition: p.FinishPosition})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FinishPosition == 0 {
			return false
		}
		if out[j].FinishPosition == 0 {
			return true
		}
		return out[i].FinishPosition < out[j].FinishPosition
	})
	return out
}
