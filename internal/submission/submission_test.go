package submission

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengliwice/trees-backend/internal/apierr"
	"github.com/greengliwice/trees-backend/internal/blobstore"
	"github.com/greengliwice/trees-backend/internal/config"
	"github.com/greengliwice/trees-backend/internal/ddb"
	"github.com/greengliwice/trees-backend/internal/ddb/ddbtest"
	"github.com/greengliwice/trees-backend/internal/dicts"
	"github.com/greengliwice/trees-backend/internal/form"
	"github.com/greengliwice/trees-backend/internal/imagery/imagerytest"
	"github.com/greengliwice/trees-backend/internal/models"
)

// countingStore counts every call into the object store.
type countingStore struct {
	blobstore.Store
	calls atomic.Int32
}

func (c *countingStore) EnsureContainer(ctx context.Context) error {
	c.calls.Add(1)
	return c.Store.EnsureContainer(ctx)
}

func (c *countingStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	c.calls.Add(1)
	return c.Store.Put(ctx, name, data, contentType)
}

func (c *countingStore) Delete(ctx context.Context, name string) error {
	c.calls.Add(1)
	return c.Store.Delete(ctx, name)
}

type stubGeocoder struct {
	loc   models.Location
	err   error
	calls int
}

func (g *stubGeocoder) Reverse(_ context.Context, lat, lon float64) (models.Location, error) {
	g.calls++
	if g.err != nil {
		return models.Location{}, g.err
	}
	loc := g.loc
	loc.Latitude, loc.Longitude = lat, lon
	return loc, nil
}

type harness struct {
	svc      *Service
	db       *ddbtest.Fake
	baseline int
	mem      *blobstore.Memory
	blobs    *countingStore
	geo      *stubGeocoder
}

func newHarness(t *testing.T, policy string) *harness {
	t.Helper()
	db := ddbtest.New()
	db.Define("Dicts", "type", "id")
	db.Define("Trees", "PK", "SK", ddb.ByIDIndex, "tree_id")
	dictRepo := &ddb.DictRepo{DB: db, Table: "Dicts"}
	require.NoError(t, dictRepo.Seed(context.Background(), dicts.MustSeed()))

	mem := blobstore.NewMemory("images")
	blobs := &countingStore{Store: mem}
	geo := &stubGeocoder{loc: models.Location{FormattedAddress: "Zwycięstwa 21, Gliwice", City: "Gliwice"}}

	cfg := Config{
		HealthyLabel:           "zdrowe",
		UnhealthyLabel:         "chore/uszkodzone",
		StateDescriptionPolicy: policy,
		RequireDescription:     true,
	}
	svc := New(cfg, dictRepo, &ddb.TreeRepo{DB: db, Table: "Trees"}, blobs, geo, nil)
	return &harness{svc: svc, db: db, baseline: db.Total(), mem: mem, blobs: blobs, geo: geo}
}

func (h *harness) storeCalls() int {
	return h.db.Total() - h.baseline + int(h.blobs.calls.Load()) + h.geo.calls
}

func jpegBytes(t *testing.T, w, hgt int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, hgt))
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: 120, B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func file(name string, data []byte) form.Part {
	return form.Part{Kind: form.KindFile, Name: name, Filename: name + ".jpg", ContentType: "application/octet-stream", Data: data}
}

func field(name, value string) form.Part {
	return form.Part{Kind: form.KindField, Name: name, Value: value}
}

// healthyParts is scenario 1: a healthy tree with tree and leaf photos.
func healthyParts(t *testing.T) []form.Part {
	return []form.Part{
		file("tree", jpegBytes(t, 400, 300)),
		file("leaf", jpegBytes(t, 64, 64)),
		field("species", dicts.ID(models.DictSpecies, "sosna")),
		field("state", dicts.ID(models.DictState, "zdrowe")),
		field("description", "stara sosna przy parku"),
		field("state-description", "bez uwag"),
		field("perimeter", "120"),
		field("lat-long", "50.29,18.67"),
	}
}

func replace(parts []form.Part, p form.Part) []form.Part {
	out := make([]form.Part, 0, len(parts)+1)
	for _, q := range parts {
		if q.Name != p.Name {
			out = append(out, q)
		}
	}
	return append(out, p)
}

func without(parts []form.Part, name string) []form.Part {
	out := make([]form.Part, 0, len(parts))
	for _, q := range parts {
		if q.Name != name {
			out = append(out, q)
		}
	}
	return out
}

func unhealthyParts(t *testing.T) []form.Part {
	parts := replace(healthyParts(t), field("state", dicts.ID(models.DictState, "chore/uszkodzone")))
	return without(parts, "state-description")
}

func requireCode(t *testing.T, err error, code apierr.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apierr.CodeOf(err), "error: %v", err)
}

func TestSubmit_HealthyTreePersisted(t *testing.T) {
	h := newHarness(t, config.StateDescriptionUnlessUnhealthy)

	tree, err := h.svc.Submit(context.Background(), "user-1", form.New(healthyParts(t)...))
	require.NoError(t, err)

	assert.NotEmpty(t, tree.ID)
	assert.Equal(t, "zdrowe", tree.State)
	assert.Equal(t, "sosna", tree.Species)
	assert.Empty(t, tree.BadState)
	assert.Equal(t, 120.0, tree.Perimeter)
	assert.Equal(t, "50.29,18.67", tree.LatLong)
	assert.Equal(t, "Zwycięstwa 21, Gliwice", tree.Address)
	require.NotNil(t, tree.GeocoderInfo)
	assert.Equal(t, 50.29, tree.GeocoderInfo.Latitude)
	assert.Equal(t, "user-1", tree.UserID)
	assert.Empty(t, tree.BarkImageURL)
	assert.Nil(t, tree.PhotoGPS)

	names := h.mem.Names()
	assert.Len(t, names, 3)
	treeName, ok := h.mem.NameFromURL(tree.TreeImageURL)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(treeName, ".jpg"))
	thumbName, _ := h.mem.NameFromURL(tree.TreeThumbnailURL)
	assert.Equal(t, "thumbnail-"+treeName, thumbName)

	_, ctype, ok := h.mem.Object(thumbName)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", ctype)

	stored, err := (&ddb.TreeRepo{DB: h.db, Table: "Trees"}).GetForUser(context.Background(), "user-1", tree.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.TreeImageURL, stored.TreeImageURL)
	assert.Equal(t, 1, h.db.Calls("BatchGetItem"))
}

func TestSubmit_UnhealthyWithBadStateAndBark(t *testing.T) {
	h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
	parts := append(unhealthyParts(t),
		field("bad-state", dicts.ID(models.DictBadState, "szkodniki")),
		file("bark", jpegBytes(t, 32, 32)),
	)

	tree, err := h.svc.Submit(context.Background(), "user-1", form.New(parts...))
	require.NoError(t, err)
	assert.Equal(t, "chore/uszkodzone", tree.State)
	assert.Equal(t, "szkodniki", tree.BadState)
	assert.NotEmpty(t, tree.BarkImageURL)
	assert.Len(t, h.mem.Names(), 4)
}

func TestSubmit_RecordsPhotoGPS(t *testing.T) {
	h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
	photo := imagerytest.WithGPS(jpegBytes(t, 120, 90), imagerytest.DMS{50, 17, 24}, "N", imagerytest.DMS{18, 40, 12}, "E")

	tree, err := h.svc.Submit(context.Background(), "user-1", form.New(replace(healthyParts(t), file("tree", photo))...))
	require.NoError(t, err)
	require.NotNil(t, tree.PhotoGPS)
	assert.InDelta(t, 50.29, tree.PhotoGPS.Latitude, 1e-9)
	assert.InDelta(t, 18.67, tree.PhotoGPS.Longitude, 1e-9)

	stored, err := (&ddb.TreeRepo{DB: h.db, Table: "Trees"}).Get(context.Background(), tree.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.PhotoGPS, stored.PhotoGPS)
}

// tinyWebP is a 1x1 lossless WebP.
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestSubmit_WebPTreeGetsJPEGThumbnail(t *testing.T) {
	h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
	webp, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)

	tree, err := h.svc.Submit(context.Background(), "user-1", form.New(replace(healthyParts(t), file("tree", webp))...))
	require.NoError(t, err)

	treeName, _ := h.mem.NameFromURL(tree.TreeImageURL)
	assert.True(t, strings.HasSuffix(treeName, ".webp"))
	_, ctype, _ := h.mem.Object(treeName)
	assert.Equal(t, "image/webp", ctype)

	thumbName, _ := h.mem.NameFromURL(tree.TreeThumbnailURL)
	assert.Equal(t, "thumbnail-"+strings.TrimSuffix(treeName, ".webp")+".jpg", thumbName)
	_, ctype, _ = h.mem.Object(thumbName)
	assert.Equal(t, "image/jpeg", ctype)
}

func TestSubmit_RejectedBeforeAnyStore(t *testing.T) {
	cases := map[string]struct {
		parts func(t *testing.T) []form.Part
		code  apierr.Code
		msg   string
	}{
		"missing tree": {
			parts: func(t *testing.T) []form.Part { return without(healthyParts(t), "tree") },
			code:  apierr.CodeInvalidFiles, msg: "invalid files",
		},
		"missing leaf": {
			parts: func(t *testing.T) []form.Part { return without(healthyParts(t), "leaf") },
			code:  apierr.CodeInvalidFiles, msg: "invalid files",
		},
		"unexpected file": {
			parts: func(t *testing.T) []form.Part { return append(healthyParts(t), file("root", jpegBytes(t, 8, 8))) },
			code:  apierr.CodeInvalidFiles, msg: "invalid files",
		},
		"negative perimeter": {
			parts: func(t *testing.T) []form.Part { return replace(healthyParts(t), field("perimeter", "-5")) },
			code:  apierr.CodeInvalidFields, msg: "invalid perimeter",
		},
		"bad lat-long": {
			parts: func(t *testing.T) []form.Part { return replace(healthyParts(t), field("lat-long", "not,a,pair")) },
			code:  apierr.CodeInvalidFields, msg: "invalid lat-long",
		},
		"species not a uuid": {
			parts: func(t *testing.T) []form.Part { return replace(healthyParts(t), field("species", "sosna")) },
			code:  apierr.CodeInvalidFields, msg: "invalid species",
		},
		"leaf not an image": {
			parts: func(t *testing.T) []form.Part { return replace(healthyParts(t), file("leaf", []byte("plain text"))) },
			code:  apierr.CodeInvalidFiles, msg: "invalid leaf",
		},
		"empty body": {
			parts: func(*testing.T) []form.Part { return nil },
			code:  apierr.CodeMissingBody, msg: "missing body",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
			_, err := h.svc.Submit(context.Background(), "user-1", form.New(tc.parts(t)...))
			requireCode(t, err, tc.code)
			assert.Equal(t, tc.msg, apierr.Message(err))
			assert.Equal(t, http.StatusBadRequest, apierr.Status(err))
			assert.Zero(t, h.storeCalls())
		})
	}
}

func TestSubmit_HealthRule(t *testing.T) {
	unknown := "3f1e7c52-9a7d-4c55-8d0e-6c1f1f0e2a11"
	cases := map[string]struct {
		parts func(t *testing.T) []form.Part
		code  apierr.Code
	}{
		"healthy with bad-state": {
			parts: func(t *testing.T) []form.Part {
				return append(healthyParts(t), field("bad-state", dicts.ID(models.DictBadState, "szkodniki")))
			},
			code: apierr.CodeInconsistentState,
		},
		"unhealthy without bad-state": {
			parts: unhealthyParts,
			code:  apierr.CodeMissingBadState,
		},
		"unhealthy with unknown bad-state": {
			parts: func(t *testing.T) []form.Part { return append(unhealthyParts(t), field("bad-state", unknown)) },
			code:  apierr.CodeUnknownBadState,
		},
		"bad-state id of another dictionary": {
			parts: func(t *testing.T) []form.Part {
				return append(unhealthyParts(t), field("bad-state", dicts.ID(models.DictSpecies, "sosna")))
			},
			code: apierr.CodeUnknownBadState,
		},
		"unknown species": {
			parts: func(t *testing.T) []form.Part { return replace(healthyParts(t), field("species", unknown)) },
			code:  apierr.CodeUnknownSpecies,
		},
		"unknown state": {
			parts: func(t *testing.T) []form.Part { return replace(healthyParts(t), field("state", unknown)) },
			code:  apierr.CodeUnknownState,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
			_, err := h.svc.Submit(context.Background(), "user-1", form.New(tc.parts(t)...))
			requireCode(t, err, tc.code)
			assert.Equal(t, 1, h.db.Calls("BatchGetItem"))
			assert.Zero(t, h.blobs.calls.Load())
			assert.Zero(t, h.geo.calls)
			assert.Zero(t, h.db.Len("Trees"))
		})
	}
}

func TestSubmit_StateDescriptionPolicy(t *testing.T) {
	parts := func(t *testing.T) []form.Part { return without(healthyParts(t), "state-description") }

	h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
	_, err := h.svc.Submit(context.Background(), "u", form.New(parts(t)...))
	requireCode(t, err, apierr.CodeInvalidFields)
	assert.Equal(t, "state-description required", apierr.Message(err))
	assert.Zero(t, h.blobs.calls.Load())

	h = newHarness(t, config.StateDescriptionRequired)
	_, err = h.svc.Submit(context.Background(), "u", form.New(parts(t)...))
	requireCode(t, err, apierr.CodeInvalidFields)
	assert.Zero(t, h.storeCalls())

	h = newHarness(t, config.StateDescriptionOptional)
	_, err = h.svc.Submit(context.Background(), "u", form.New(parts(t)...))
	require.NoError(t, err)
}

func TestSubmit_GeocodeFailure(t *testing.T) {
	h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
	h.geo.err = errors.New("nominatim down")

	_, err := h.svc.Submit(context.Background(), "u", form.New(healthyParts(t)...))
	requireCode(t, err, apierr.CodeGeocodeFailure)
	assert.Equal(t, http.StatusInternalServerError, apierr.Status(err))
	assert.Equal(t, "internal error", apierr.Message(err))
	assert.Zero(t, h.blobs.calls.Load())
}

func TestSubmit_CompensatesWhenRecordWriteFails(t *testing.T) {
	h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
	boom := errors.New("throttled")
	h.db.Fail("PutItem", boom)

	_, err := h.svc.Submit(context.Background(), "u", form.New(healthyParts(t)...))
	requireCode(t, err, apierr.CodeStoreFailure)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, h.mem.Names())
	assert.Len(t, h.mem.Deletions(), 3)
}

func TestSubmit_CompensatesPartialUpload(t *testing.T) {
	h := newHarness(t, config.StateDescriptionUnlessUnhealthy)
	var puts int
	h.mem.FailPut = func(string) error {
		puts++
		if puts == 3 {
			return errors.New("disk full")
		}
		return nil
	}

	_, err := h.svc.Submit(context.Background(), "u", form.New(healthyParts(t)...))
	requireCode(t, err, apierr.CodeStoreFailure)
	assert.Empty(t, h.mem.Names())
	assert.Len(t, h.mem.Deletions(), 2)
	assert.Zero(t, h.db.Len("Trees"))
}
