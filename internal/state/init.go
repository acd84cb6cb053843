package state

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// InitializeApp hydrates persisted state, then loads every collection from
// the backend concurrently. Individual load failures are recorded in the
// Error field by the loads themselves; an unexpected failure such as a panic
// is recorded and returned.
func (s *Store) InitializeApp(ctx context.Context) error {
	s.Hydrate(ctx)

	s.update(func(st *Snapshot) { st.IsLoading = true })
	defer s.update(func(st *Snapshot) { st.IsLoading = false })

	loads := map[string]func(context.Context){
		"study sessions":   s.LoadStudySessions,
		"active session":   s.CheckActiveSession,
		"conversations":    s.LoadConversations,
		"documents":        s.LoadDocuments,
		"progress":         s.LoadUserProgress,
		"mindful sessions": s.LoadMindfulSessions,
	}

	var g errgroup.Group
	for name, load := range loads {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("load %s: %v", name, r)
				}
			}()
			load(ctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.fail("initialize app", err)
	}
	s.log.Debug().Msg("app initialized")
	return nil
}
