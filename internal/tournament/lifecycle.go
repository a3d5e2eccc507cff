package tournament

import (
	"fmt"

	"poker-core/internal/events"
	"poker-core/internal/table"
)

// StartTournament snapshots participants, allocates tables via a
// reproducible shuffle, seats everyone at their starting stack, and arms the
// blind clock. Requires at least 2 participants.
func (tr *Tournament) StartTournament(hostID string) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		if tr.status != StatusRegistration {
			return ErrWrongPhase
		}
		if len(tr.participants) < 2 {
			return ErrNotEnoughPlayers
		}
		if err := tr.allocateTables(); err != nil {
			return err
		}
		tr.currentLevel = 0
		tr.status = StatusActive
		tr.scheduleBlindClock()
		tr.publish(events.TournamentStatusChanged{TournamentID: tr.id, Status: string(tr.status)})
		return nil
	})
}

// allocateTables distributes participants round-robin across
// ceil(N / maxPlayersPerTable) tables after a reproducible shuffle of ids,
// per the spec's "reproducible shuffle of participant ids" allocation rule.
func (tr *Tournament) allocateTables() error {
	ids := make([]string, 0, len(tr.participants))
	for id := range tr.participants {
		ids = append(ids, id)
	}
	order, err := shuffledOrder(tr.id, ids)
	if err != nil {
		return fmt.Errorf("tournament: shuffle failed: %w", err)
	}

	perTable := tr.settings.MaxPlayersPerTable
	numTables := (len(order) + perTable - 1) / perTable

	groups := make([][]string, numTables)
	for i, userID := range order {
		slot := i % numTables
		groups[slot] = append(groups[slot], userID)
	}

	lvl := tr.settings.BlindStructure[0]
	for i, group := range groups {
		if len(group) == 0 {
			continue
		}
		tableID := fmt.Sprintf("%s-table-%d", tr.id, i+1)
		tbl, err := tr.mint(TableSpec{
			TableID:       tableID,
			TournamentID:  tr.id,
			MaxSeats:      perTable,
			SmallBlind:    lvl.Small,
			BigBlind:      lvl.Big,
			OnElimination: func(userID string) { tr.NotifyElimination(tableID, userID) },
			OnPostHand:    func() { tr.NotifyPostHand(tableID) },
		})
		if err != nil {
			return fmt.Errorf("tournament: mint table %s: %w", tableID, err)
		}
		tr.tables[tableID] = tbl

		for _, userID := range group {
			seat, err := tbl.SeatWithStack(userID, tr.settings.StartingStack)
			if err != nil {
				return fmt.Errorf("tournament: seat %s at %s: %w", userID, tableID, err)
			}
			p := tr.participants[userID]
			p.Status = ParticipantActive
			p.CurrentStack = tr.settings.StartingStack
			p.CurrentTableID = tableID
			p.CurrentSeat = seat
		}
	}
	return nil
}

// PauseTournament stops the blind clock (recording the remaining time) and
// pauses every table, preserving hand state in place.
func (tr *Tournament) PauseTournament(hostID string) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		if tr.status != StatusActive {
			return ErrWrongPhase
		}
		tr.status = StatusPaused
		tr.pauseBlindClock()
		for _, tbl := range tr.tables {
			tbl.SetPaused(true)
		}
		tr.publish(events.TournamentStatusChanged{TournamentID: tr.id, Status: string(tr.status)})
		return nil
	})
}

// ResumeTournament restores the blind clock's exact remaining time and
// unpauses every table.
func (tr *Tournament) ResumeTournament(hostID string) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		if tr.status != StatusPaused {
			return ErrWrongPhase
		}
		tr.status = StatusActive
		tr.resumeBlindClock()
		for _, tbl := range tr.tables {
			tbl.SetPaused(false)
		}
		tr.publish(events.TournamentStatusChanged{TournamentID: tr.id, Status: string(tr.status)})
		return nil
	})
}

// CancelTournament is reachable from any non-terminal status; it tears down
// every table immediately.
func (tr *Tournament) CancelTournament(hostID string) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		if tr.status == StatusCompleted || tr.status == StatusCancelled {
			return ErrWrongPhase
		}
		tr.status = StatusCancelled
		tr.cancelBlindTimers()
		tr.closeAllTables()
		tr.publish(events.TournamentCancelled{TournamentID: tr.id})
		return nil
	})
}

func (tr *Tournament) closeAllTables() {
	for id, tbl := range tr.tables {
		tbl.Stop()
		tr.bcast.CloseRoom(id)
	}
	tr.tables = make(map[string]*table.Table)
}

// BanPlayer removes userId from the tournament, host-only. Mid-hand this is
// equivalent to an auto-fold followed by LEFT: chips already committed to
// the table stay with the table, not refunded.
func (tr *Tournament) BanPlayer(hostID, userID string) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		p := tr.participants[userID]
		if p == nil || p.Status != ParticipantActive {
			return ErrNotRegistered
		}
		tbl := tr.tables[p.CurrentTableID]
		if tbl == nil {
			return ErrUnknownTable
		}
		if err := tbl.Ban(userID); err != nil {
			return err
		}
		p.Status = ParticipantBanned
		now := tr.clk.Now()
		p.EliminatedAt = &now
		p.FinishPosition = tr.activeCount() + 1
		playersEliminatedTotal.WithLabelValues("banned").Inc()
		tr.publish(events.TournamentPlayerBanned{TournamentID: tr.id, UserID: userID})
		tr.checkCompletion()
		return nil
	})
}

// Leave withdraws an active participant voluntarily (disconnect-to-quit,
// not a host ban); the forfeiture rule is the same as BanPlayer's.
func (tr *Tournament) Leave(userID string) error {
	return tr.call(func() error {
		p := tr.participants[userID]
		if p == nil || p.Status != ParticipantActive {
			return ErrNotRegistered
		}
		tbl := tr.tables[p.CurrentTableID]
		if tbl == nil {
			return ErrUnknownTable
		}
		if err := tbl.Ban(userID); err != nil {
			return err
		}
		now := tr.clk.Now()
		p.Status = ParticipantEliminated
		p.EliminatedAt = &now
		p.FinishPosition = tr.activeCount() + 1
		playersEliminatedTotal.WithLabelValues("left").Inc()
		tr.publish(events.TournamentPlayerLeft{TournamentID: tr.id, UserID: userID})
		tr.checkCompletion()
		return nil
	})
}

// TransferPlayer is the host-driven manual move (TRANSFER_PLAYER admin
// action), distinct from the supervisor's own balancing transfers.
func (tr *Tournament) TransferPlayer(hostID, userID, targetTableID string) error {
	return tr.call(func() error {
		if hostID != tr.hostID {
			return ErrNotHost
		}
		p := tr.participants[userID]
		if p == nil || p.Status != ParticipantActive {
			return ErrNotRegistered
		}
		srcTable := tr.tables[p.CurrentTableID]
		dstTable := tr.tables[targetTableID]
		if srcTable == nil || dstTable == nil {
			return ErrUnknownTable
		}
		chips, err := srcTable.ForceVacateForTransfer(userID)
		if err != nil {
			return err
		}
		seat, err := dstTable.SeatWithStack(userID, chips)
		if err != nil {
			_, _ = srcTable.SeatWithStack(userID, chips)
			return err
		}
		p.CurrentTableID = targetTableID
		p.CurrentSeat = seat
		p.CurrentStack = chips
		tr.publish(events.TournamentPlayerTransferred{
			UserID:        userID,
			SourceTableID: srcTable.ID(),
			TargetTableID: targetTableID,
			TargetSeat:    seat,
		})
		return nil
	})
}
