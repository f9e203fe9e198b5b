// Package tscat manages catalogues of time-series events: intervals with an
// author, free-form typed attributes and tags, grouped into named
// catalogues and persisted in SQLite.
//
// # Usage
//
//	b, err := tscat.Open("catalogues.db")
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//
//	err = b.Session(ctx, func(s *tscat.Session) error {
//		e, err := s.CreateEvent(start, stop, "Patrick", tscat.With("field1", 1), tscat.WithTags("a", "b"))
//		if err != nil {
//			return err
//		}
//		c, err := s.CreateCatalogue("Test1", "Patrick")
//		if err != nil {
//			return err
//		}
//		return s.AddEventsToCatalogue(ctx, c, e)
//	})
//
//	events, err := b.GetEvents(ctx, tscat.EventQuery{Filter: tscat.In("b", tscat.Field("tags"))})
//
// # Sessions
//
// Backend methods such as CreateEvent commit immediately. A Session stages
// mutations and applies them in one transaction at Commit; staged entities
// are not visible to queries until then. Only one Session may be open per
// Backend.
//
// The package-level functions operate on the Backend installed with
// SetDefault and fail with ErrNoBackend when none is set.
package tscat
