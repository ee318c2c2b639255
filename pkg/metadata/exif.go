package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dsoprea/go-exif/v2"
	exifcommon "github.com/dsoprea/go-exif/v2/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure"
)

// Credit is the attribution written into a photo
type Credit struct {
	Photographer string
	ProfileURL   string
}

// CopyrightNotice is the Copyright tag value for c
func (c Credit) CopyrightNotice() string {
	return fmt.Sprintf("Photo by %s on Pexels", c.Photographer)
}

// CreditStore locates and rewrites files in the output directory
type CreditStore interface {
	Path(filename string) string
	WriteFile(filename string, data []byte) error
}

// EmbedCredit sets the Artist, Copyright and ImageDescription tags of a
// downloaded JPEG and returns the size of the rewritten file. The file is
// only replaced once the new image is fully encoded.
func EmbedCredit(store CreditStore, filename string, c Credit) (int64, error) {
	data, err := creditedJPEG(store.Path(filename), c)
	if err != nil {
		return 0, fmt.Errorf("failed to embed credit in %s: %w", filename, err)
	}
	if err := store.WriteFile(filename, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func creditedJPEG(jpegPath string, c Credit) ([]byte, error) {
	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseFile(jpegPath)
	if err != nil {
		return nil, err
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, ifd0Ib, err := exifBuilders(sl)
	if err != nil {
		return nil, err
	}

	if err := ifd0Ib.SetStandardWithName("Artist", c.Photographer); err != nil {
		return nil, err
	}
	if err := ifd0Ib.SetStandardWithName("Copyright", c.CopyrightNotice()); err != nil {
		return nil, err
	}
	if c.ProfileURL != "" {
		if err := ifd0Ib.SetStandardWithName("ImageDescription", c.ProfileURL); err != nil {
			return nil, err
		}
	}

	if err := sl.SetExif(rootIb); err != nil {
		return nil, err
	}

	b := new(bytes.Buffer)
	if err := sl.Write(b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// exifBuilders returns the root and IFD0 builders for sl. Images without an
// EXIF segment get a fresh big-endian IFD0.
func exifBuilders(sl *jpegstructure.SegmentList) (*exif.IfdBuilder, *exif.IfdBuilder, error) {
	if _, _, err := sl.FindExif(); err != nil {
		if !errors.Is(err, exif.ErrNoExif) {
			return nil, nil, err
		}
		rootIb := exif.NewIfdBuilder(
			exif.NewIfdMappingWithStandard(),
			exif.NewTagIndex(),
			exifcommon.IfdStandardIfdIdentity,
			binary.BigEndian,
		)
		return rootIb, rootIb, nil
	}

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return nil, nil, err
	}
	ifd0Ib, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD0")
	if err != nil {
		return nil, nil, err
	}
	return rootIb, ifd0Ib, nil
}
