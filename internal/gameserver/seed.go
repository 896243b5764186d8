package gameserver

import (
	"context"

	"github.com/cory-johannsen/fiefdom/internal/game/records"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
	"github.com/cory-johannsen/fiefdom/internal/storage"
)

// SeedRealm stores each realm region in roomID that does not exist yet and
// returns the IDs it created. Existing regions, with their rulers and
// sieges, are left untouched.
func SeedRealm(ctx context.Context, store storage.Store, roomID string, realm *world.Realm, maxRetries int) ([]string, error) {
	var created []string
	err := storage.Run(ctx, store, maxRetries, nil, func(tx *storage.Tx) error {
		created = created[:0]
		for _, seed := range realm.Regions {
			key := records.Region(roomID, seed.ID)
			var cur world.Region
			ok, err := tx.Get(key, &cur)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			if err := tx.Put(key, seed); err != nil {
				return err
			}
			created = append(created, seed.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
