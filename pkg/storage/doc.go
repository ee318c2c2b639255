// Package storage owns the output directory of a scrape.
//
// It derives file names from photo ids and photographer names, answers the
// duplicate check (a file with the expected name exists), and writes files
// atomically through a temporary sibling that is renamed on success and
// removed on failure.
//
//	manager, err := storage.NewManager(dir)
//	name := storage.PhotoFilename(photo.ID, photo.Photographer)
//	if !manager.Exists(name) {
//	    _, err = manager.Save(name, func(w io.Writer) (int64, error) {
//	        return io.Copy(w, body)
//	    })
//	}
package storage
