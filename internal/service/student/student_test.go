package student

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/logger"
	"faceattend/internal/model"
	"faceattend/internal/repository"
	"faceattend/internal/repository/sqlite"
	"faceattend/internal/service/recognition"
)

var errNoFace = errors.New("no face detected")

type fakeEncoder struct {
	emb recognition.Embedding
	err error
}

func (f *fakeEncoder) EncodeSingle(img image.Image) (recognition.Embedding, error) {
	return f.emb, f.err
}

type fixture struct {
	svc     *Service
	gallery *recognition.Gallery
	enc     *fakeEncoder
	dir     string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.New(filepath.Join(dir, "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	enc := &fakeEncoder{emb: recognition.Embedding{0.1, 0.2, 0.3}}
	gallery := recognition.NewGallery(0, logger.Discard())
	svc := NewService(sqlite.NewStudentRepository(db), enc, gallery, filepath.Join(dir, "photos"), logger.Discard(), nil)
	return &fixture{svc: svc, gallery: gallery, enc: enc, dir: dir}
}

func photo() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 16, 16))
}

func TestRegister_StoresRecordPhotoAndReloadsGallery(t *testing.T) {
	f := setup(t)
	st := &model.Student{StudentID: "S001", Name: "Alice", Department: "CS"}

	require.NoError(t, f.svc.Register(st, photo()))

	assert.NotZero(t, st.ID)
	assert.FileExists(t, filepath.Join(f.dir, "photos", "S001.jpg"))
	assert.Equal(t, 1, f.gallery.Len())

	got, err := f.svc.Get("S001")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, got.Embedding)
	assert.Equal(t, st.PhotoPath, got.PhotoPath)
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	f := setup(t)

	err := f.svc.Register(&model.Student{StudentID: "S 1", Name: "Alice"}, photo())
	assert.Error(t, err)
	assert.Equal(t, 0, f.gallery.Len())
}

func TestRegister_Duplicate(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.svc.Register(&model.Student{StudentID: "S001", Name: "Alice"}, photo()))

	err := f.svc.Register(&model.Student{StudentID: "S001", Name: "Bob"}, photo())
	assert.ErrorIs(t, err, repository.ErrStudentExists)
}

func TestRegister_EncoderFailureStoresNothing(t *testing.T) {
	f := setup(t)
	f.enc.err = errNoFace

	err := f.svc.Register(&model.Student{StudentID: "S001", Name: "Alice"}, photo())

	assert.ErrorIs(t, err, errNoFace)
	_, err = f.svc.Get("S001")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoFileExists(t, filepath.Join(f.dir, "photos", "S001.jpg"))
}

func TestRegisterFromFile(t *testing.T) {
	f := setup(t)
	path := filepath.Join(f.dir, "upload.png")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, photo()))
	require.NoError(t, out.Close())

	require.NoError(t, f.svc.RegisterFromFile(&model.Student{StudentID: "S001", Name: "Alice"}, path))

	assert.Error(t, f.svc.RegisterFromFile(&model.Student{StudentID: "S002", Name: "Bob"}, filepath.Join(f.dir, "missing.png")))
}

func TestUpdate_ValidatesAndReloads(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.svc.Register(&model.Student{StudentID: "S001", Name: "Alice"}, photo()))

	bad := "Al1ce"
	assert.Error(t, f.svc.Update("S001", model.StudentUpdate{Name: &bad}))

	name := "Alice Smith"
	require.NoError(t, f.svc.Update("S001", model.StudentUpdate{Name: &name}))
	assert.Equal(t, "Alice Smith", f.gallery.Snapshot().Entries()[0].Name)

	assert.ErrorIs(t, f.svc.Update("S404", model.StudentUpdate{Name: &name}), ErrNotFound)
}

func TestDelete_RemovesPhotoAndGalleryEntry(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.svc.Register(&model.Student{StudentID: "S001", Name: "Alice"}, photo()))

	require.NoError(t, f.svc.Delete("S001"))

	assert.Equal(t, 0, f.gallery.Len())
	assert.NoFileExists(t, filepath.Join(f.dir, "photos", "S001.jpg"))
	assert.ErrorIs(t, f.svc.Delete("S001"), ErrNotFound)
}

func TestSearchAndList(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.svc.Register(&model.Student{StudentID: "S001", Name: "Alice", Department: "CS"}, photo()))
	require.NoError(t, f.svc.Register(&model.Student{StudentID: "S002", Name: "Bob", Department: "EE"}, photo()))

	all, err := f.svc.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := f.svc.Search("bob")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "S002", found[0].StudentID)

	depts, err := f.svc.Departments()
	require.NoError(t, err)
	assert.Equal(t, []string{"CS", "EE"}, depts)
}
