package session

import (
	"fmt"

	"poker-core/internal/events"
	"poker-core/internal/tournament"
)

var ErrBadPayload = fmt.Errorf("session: malformed admin payload")

// dispatchTournamentAdmin fans TournamentAdminAction out to the matching
// Tournament method, parsing its loosely-typed payload the way the
// teacher's parseAction parses raw JSON maps for admin commands.
func (r *Router) dispatchTournamentAdmin(userID string, m events.TournamentAdminAction) error {
	trn, ok := r.tournaments(m.TournamentID)
	if !ok {
		return ErrNotFound
	}

	switch m.Type {
	case events.TournamentUpdateSettings:
		settings, err := parseSettings(m.Settings)
		if err != nil {
			return err
		}
		return trn.UpdateSettings(userID, settings)
	case events.TournamentOpenRegistration:
		return trn.OpenRegistration(userID)
	case events.TournamentStart:
		return trn.StartTournament(userID)
	case events.TournamentPause:
		return trn.PauseTournament(userID)
	case events.TournamentResume:
		return trn.ResumeTournament(userID)
	case events.TournamentCancel:
		return trn.CancelTournament(userID)
	case events.TournamentBanPlayer:
		target, ok := stringField(m.Settings, "userId")
		if !ok {
			return ErrBadPayload
		}
		return trn.BanPlayer(userID, target)
	case events.TournamentRegisterPlayer:
		target, ok := stringField(m.Settings, "userId")
		if !ok {
			return ErrBadPayload
		}
		return trn.AdminRegisterPlayer(userID, target)
	case events.TournamentTransferPlayer:
		target, ok := stringField(m.Settings, "userId")
		if !ok {
			return ErrBadPayload
		}
		destTable, ok := stringField(m.Settings, "targetTableId")
		if !ok {
			return ErrBadPayload
		}
		return trn.TransferPlayer(userID, target, destTable)
	default:
		return ErrUnknownCmd
	}
}

func stringField(payload map[string]interface{}, key string) (string, bool) {
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func parseSettings(payload map[string]interface{}) (tournament.Settings, error) {
	var s tournament.Settings

	perTable, ok := numberField(payload, "maxPlayersPerTable")
	if !ok {
		return s, ErrBadPayload
	}
	s.MaxPlayersPerTable = int(perTable)

	stack, ok := numberField(payload, "startingStack")
	if !ok {
		return s, ErrBadPayload
	}
	s.StartingStack = int64(stack)

	duration, ok := numberField(payload, "blindLevelDurationMillis")
	if !ok {
		return s, ErrBadPayload
	}
	s.BlindLevelDurationMillis = int64(duration)

	if maxPlayers, ok := numberField(payload, "maxPlayers"); ok {
		mp := int(maxPlayers)
		s.MaxPlayers = &mp
	}

	rawLevels, ok := payload["blindStructure"].([]interface{})
	if !ok {
		return s, ErrBadPayload
	}
	for _, raw := range rawLevels {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return s, ErrBadPayload
		}
		small, ok1 := numberField(m, "small")
		big, ok2 := numberField(m, "big")
		if !ok1 || !ok2 {
			return s, ErrBadPayload
		}
		s.BlindStructure = append(s.BlindStructure, tournament.BlindLevel{
			Small: int64(small),
			Big:   int64(big),
		})
	}
	return s, nil
}

func numberField(payload map[string]interface{}, key string) (float64, bool) {
	v, ok := payload[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
