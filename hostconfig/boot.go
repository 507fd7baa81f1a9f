package hostconfig

import (
	liblog "github.com/nabbar/abel/logger"

	"github.com/nabbar/abel/lifecycle"
)

// Boot reconstitutes every persisted service against eng. metadata.json
// is authoritative: a service recorded started comes back Running via
// ColdUpdateOrCreate, anything else is preloaded Stopped. A service whose
// metadata or source cannot be read is skipped and logged rather than
// aborting the whole boot sequence; one corrupt directory should not take
// the host down.
func Boot(eng *lifecycle.Engine, store *Store, log liblog.Logger) error {
	names, err := store.ListServices()
	if err != nil {
		return err
	}

	for _, name := range names {
		meta, merr := store.ReadMetadata(name)
		if merr != nil {
			if log != nil {
				log.Warning("boot: skipping "+name+", cannot read metadata", merr)
			}
			continue
		}

		src, serr := store.LoadSource(name)
		if serr != nil {
			if log != nil {
				log.Warning("boot: skipping "+name+", cannot load source", serr)
			}
			continue
		}

		if meta.Started {
			if _, _, err := eng.ColdUpdateOrCreate(name, meta.UUID, src, false); err != nil {
				if log != nil {
					log.Error("boot: failed to start "+name, err)
				}
			}
			continue
		}

		if _, err := eng.Preload(name, meta.UUID, src); err != nil {
			if log != nil {
				log.Error("boot: failed to preload "+name, err)
			}
		}
	}

	return nil
}
