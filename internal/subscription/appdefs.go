package subscription

import (
	"context"

	"spacepurchase/internal/external"
	"spacepurchase/internal/types"

	"golang.org/x/sync/errgroup"
)

const publicAppDefinitionsPath = "/app_definitions"

// lookupAppDefinitions queries the public and organization endpoints
// concurrently. Public definitions win; the organization result only fills
// ids missing from the public one, so its failure is ignored when nothing is
// missing. The result follows the order of ids and skips ids found nowhere.
func lookupAppDefinitions(ctx context.Context, api API, orgID string, ids []string) ([]types.AppDefinition, error) {
	if len(ids) == 0 {
		return []types.AppDefinition{}, nil
	}

	var public, private types.Collection[types.AppDefinition]
	var privateErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Get(gctx, publicAppDefinitionsPath, idsQuery(ids), &public)
	})
	g.Go(func() error {
		privateErr = api.Get(gctx, external.OrgPath(orgID, "app_definitions"), idsQuery(ids), &private)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := make(map[string]types.AppDefinition, len(ids))
	for _, def := range public.Items {
		found[def.Sys.ID] = def
	}

	missing := false
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = true
			break
		}
	}
	if missing {
		if privateErr != nil {
			return nil, privateErr
		}
		for _, def := range private.Items {
			if _, ok := found[def.Sys.ID]; !ok {
				found[def.Sys.ID] = def
			}
		}
	}

	out := make([]types.AppDefinition, 0, len(ids))
	for _, id := range ids {
		if def, ok := found[id]; ok {
			out = append(out, def)
		}
	}
	return out, nil
}
