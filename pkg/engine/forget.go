package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/harun/engram/pkg/model"
)

const forgetConfirmationPrompt = "Generate a brief confirmation message for memory deletion."

// ForgetMemory applies the redaction/deletion contract across the
// three stores. An item is recorded as deleted only when its store
// reports an actual removal. Deleting an entity detach-deletes the
// node and all its edges; deleting a predicate removes only the
// predicate-tagged edges inside the owner's subgraph.
func (e *Engine) ForgetMemory(ctx context.Context, req ForgetRequest) ForgetResponse {
	logger := e.opLogger("forget")

	if req.OwnerID == "" {
		return ForgetResponse{Success: false, Error: "owner_id is required"}
	}

	deleted := []string{}

	for _, key := range req.Keys {
		removed, err := e.facts.DeleteFact(ctx, req.OwnerID, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Fact deletion failed")
			continue
		}
		if removed {
			deleted = append(deleted, "fact:"+key)
		}
	}

	if req.HardDelete {
		ids, err := e.episodes.ListIDs(ctx, req.OwnerID)
		if err != nil {
			logger.Warn().Err(err).Msg("Episode enumeration failed")
		} else if len(ids) > 0 {
			if err := e.episodes.DeleteByIDs(ctx, ids); err != nil {
				logger.Warn().Err(err).Msg("Episode purge failed")
			} else {
				deleted = append(deleted, fmt.Sprintf("episodes:%d", len(ids)))
			}
		}
	} else {
		n, err := e.episodes.MarkRedacted(ctx, req.OwnerID)
		if err != nil {
			logger.Warn().Err(err).Msg("Episode redaction failed")
		} else if n > 0 {
			deleted = append(deleted, fmt.Sprintf("episodes:redacted:%d", n))
		}
	}

	for _, name := range req.Entities {
		n, err := e.relations.DeleteEntity(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Str("entity", name).Msg("Entity deletion failed")
			continue
		}
		if n > 0 {
			deleted = append(deleted, "entity:"+name)
		}
	}

	for _, p := range req.Predicates {
		predicate := model.Predicate(strings.ToUpper(p))
		if !model.ValidPredicate(predicate) {
			logger.Warn().Str("predicate", p).Msg("Ignoring unknown predicate")
			continue
		}
		n, err := e.relations.DeletePredicateEdges(ctx, req.OwnerID, predicate)
		if err != nil {
			logger.Warn().Err(err).Str("predicate", p).Msg("Predicate edge deletion failed")
			continue
		}
		if n > 0 {
			deleted = append(deleted, fmt.Sprintf("predicate:%s:%d", predicate, n))
		}
	}

	confirmation, err := e.gw.Complete(ctx, forgetConfirmationPrompt, "Deleted items: "+strings.Join(deleted, ", "), 0)
	if err != nil {
		logger.Warn().Err(err).Msg("Confirmation synthesis failed")
		confirmation = ""
	}

	return ForgetResponse{
		Success:      true,
		DeletedItems: deleted,
		Confirmation: confirmation,
	}
}
