package maintenance

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gallery/db"
	"gallery/logging"
	"gallery/models"

	"github.com/google/uuid"
)

const legacyPrefix = "r2-"

var (
	uploadTimestamp = regexp.MustCompile(`^\d{13}-`)
	cuidName        = regexp.MustCompile(`^c[a-z0-9]{24}$`)
)

type DedupResult struct {
	Processed       int      `json:"processed"`
	DuplicatesFound int      `json:"duplicates_found"`
	HiddenIDs       []uint64 `json:"hidden_ids"`
}

type dedupCandidate struct {
	ID         uint64
	Filename   string
	FileSize   int64
	UploadedAt int64
	AlbumName  string
	AlbumSlug  string
}

// NormalizeFilename maps an uploaded name and the synced key basename of the
// same file to the same value. Any 13 digit prefix is taken for an upload
// timestamp.
func NormalizeFilename(filename string) string {
	name := strings.ToLower(strings.TrimSpace(filename))
	name = strings.TrimPrefix(name, legacyPrefix)
	return uploadTimestamp.ReplaceAllString(name, "")
}

// IsMachineAlbumName reports names that were generated rather than typed:
// CUID and UUID ids, and the legacy r2- prefix
func IsMachineAlbumName(name string) bool {
	if cuidName.MatchString(name) || strings.HasPrefix(name, legacyPrefix) {
		return true
	}
	if len(name) == 36 {
		_, err := uuid.Parse(name)
		return err == nil
	}
	return false
}

func (c dedupCandidate) machineAlbum() bool {
	return IsMachineAlbumName(c.AlbumName) || IsMachineAlbumName(c.AlbumSlug)
}

// keeps reports whether a should survive over b
func keeps(a, b dedupCandidate) bool {
	if am, bm := a.machineAlbum(), b.machineAlbum(); am != bm {
		return !am
	}
	if al, bl := utf8.RuneCountInString(a.AlbumName), utf8.RuneCountInString(b.AlbumName); al != bl {
		return al < bl
	}
	if a.UploadedAt != b.UploadedAt {
		return a.UploadedAt < b.UploadedAt
	}
	return a.ID < b.ID
}

// Deduplicate hides every visible photo that has a twin of the same size and
// normalized name, keeping one per group. Nothing is deleted.
func Deduplicate(ctx context.Context) (result DedupResult, err error) {
	var candidates []dedupCandidate
	err = db.Instance.WithContext(ctx).Table("photos").
		Select("photos.id, photos.filename, photos.file_size, photos.uploaded_at, albums.name AS album_name, albums.slug AS album_slug").
		Joins("JOIN albums ON albums.id = photos.album_id").
		Where("photos.visibility = ?", models.PhotoVisible).
		Order("photos.id ASC").
		Scan(&candidates).Error
	if err != nil {
		return
	}
	result.Processed = len(candidates)
	result.HiddenIDs = findDuplicates(candidates)
	result.DuplicatesFound = len(result.HiddenIDs)

	if len(result.HiddenIDs) > 0 {
		err = db.Instance.WithContext(ctx).Model(&models.Photo{}).
			Where("id IN ?", result.HiddenIDs).
			Update("visibility", models.PhotoHidden).Error
		if err != nil {
			return
		}
	}
	logging.Info("Deduplication completed",
		logging.Int("processed", result.Processed),
		logging.Int("hidden", result.DuplicatesFound))
	return
}

// findDuplicates returns the ids of every group member except its survivor
func findDuplicates(candidates []dedupCandidate) []uint64 {
	groups := map[string][]dedupCandidate{}
	var order []string
	for _, c := range candidates {
		key := strconv.FormatInt(c.FileSize, 10) + "-" + NormalizeFilename(c.Filename)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}
	hidden := []uint64{}
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return keeps(group[i], group[j]) })
		for _, loser := range group[1:] {
			hidden = append(hidden, loser.ID)
		}
	}
	return hidden
}
