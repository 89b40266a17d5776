// Package submission turns a validated tree form into stored images and a
// persisted tree record.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/greengliwice/trees-backend/internal/apierr"
	"github.com/greengliwice/trees-backend/internal/blobstore"
	"github.com/greengliwice/trees-backend/internal/config"
	"github.com/greengliwice/trees-backend/internal/ddb"
	"github.com/greengliwice/trees-backend/internal/dicts"
	"github.com/greengliwice/trees-backend/internal/form"
	"github.com/greengliwice/trees-backend/internal/geocode"
	"github.com/greengliwice/trees-backend/internal/imagery"
	"github.com/greengliwice/trees-backend/internal/models"
	"github.com/greengliwice/trees-backend/internal/validate"
)

// DictResolver looks up reference-data entries in one round trip.
type DictResolver interface {
	Resolve(ctx context.Context, refs []ddb.DictRef) ([]models.DictItem, error)
}

// TreeWriter persists a tree and returns it with its generated id.
type TreeWriter interface {
	Put(ctx context.Context, t models.Tree) (models.Tree, error)
}

// Config is the tunable part of the pipeline.
type Config struct {
	HealthyLabel           string
	UnhealthyLabel         string
	StateDescriptionPolicy string
	RequireDescription     bool
}

// ConfigFromEnv picks the pipeline settings out of env.
func ConfigFromEnv(env config.Env) Config {
	return Config{
		HealthyLabel:           env.HealthyLabel,
		UnhealthyLabel:         env.UnhealthyLabel,
		StateDescriptionPolicy: env.StateDescriptionPolicy,
		RequireDescription:     env.RequireDescription,
	}
}

// Service runs tree submissions. Uploads within one submission are sequential.
type Service struct {
	cfg      Config
	validate *validate.Engine
	dicts    DictResolver
	trees    TreeWriter
	blobs    blobstore.Store
	geocoder geocode.Resolver
	log      *slog.Logger
}

// New wires a Service from its collaborators.
func New(cfg Config, d DictResolver, t TreeWriter, b blobstore.Store, g geocode.Resolver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg: cfg,
		validate: validate.New(validate.Rules{
			RequireDescription:      cfg.RequireDescription,
			RequireStateDescription: cfg.StateDescriptionPolicy == config.StateDescriptionRequired,
		}),
		dicts:    d,
		trees:    t,
		blobs:    b,
		geocoder: g,
		log:      log,
	}
}

// sniffed is a file part with its detected type.
type sniffed struct {
	part form.Part
	typ  imagery.Type

	// tree only
	thumb     []byte
	thumbType imagery.Type
	gps       *models.GeoPoint
}

// resolved holds the names the submitted ids point to.
type resolved struct {
	species  string
	state    string
	badState string
}

// Submit validates f, stores its images and persists the tree owned by userID.
func (s *Service) Submit(ctx context.Context, userID string, f form.Form) (models.Tree, error) {
	if f.Empty() {
		return models.Tree{}, apierr.New(apierr.CodeMissingBody, "missing body")
	}
	if err := s.validate.Form(f); err != nil {
		return models.Tree{}, err
	}
	images, err := sniff(f)
	if err != nil {
		return models.Tree{}, err
	}

	names, err := s.resolve(ctx, f)
	if err != nil {
		return models.Tree{}, err
	}

	latLong, _ := f.Field(validate.FieldLatLong)
	lat, lon, err := s.validate.LatLong(latLong)
	if err != nil {
		return models.Tree{}, apierr.Wrap(apierr.CodeInvalidFields, "invalid lat-long", err)
	}
	loc, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return models.Tree{}, apierr.Wrap(apierr.CodeGeocodeFailure, "geocode failed", err)
	}

	u := &uploader{store: s.blobs}
	tree, err := s.store(ctx, u, images)
	if err != nil {
		return models.Tree{}, s.compensate(ctx, u, err)
	}

	perimeter, _ := f.Field(validate.FieldPerimeter)
	tree.Perimeter = parsePerimeter(perimeter)
	tree.Species = names.species
	tree.State = names.state
	tree.BadState = names.badState
	tree.Description, _ = f.Field(validate.FieldDescription)
	tree.StateDescription, _ = f.Field(validate.FieldStateDescription)
	tree.LatLong = latLong
	tree.Address = loc.FormattedAddress
	tree.GeocoderInfo = &loc
	tree.UserID = userID

	saved, err := s.trees.Put(ctx, tree)
	if err != nil {
		return models.Tree{}, s.compensate(ctx, u, apierr.Wrap(apierr.CodeStoreFailure, "save tree", err))
	}
	s.log.Info("tree created", "id", saved.ID, "user", userID, "blobs", len(u.names))
	return saved, nil
}

// sniff identifies every file part and derives the tree thumbnail, so broken
// images are rejected before anything is stored.
func sniff(f form.Form) (map[string]sniffed, error) {
	out := map[string]sniffed{}
	for _, name := range f.FileNames() {
		part, _ := f.File(name)
		typ, err := imagery.Detect(part.Data)
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeInvalidFiles, "invalid "+name, err)
		}
		img := sniffed{part: part, typ: typ}
		if name == validate.FileTree {
			if !imagery.Thumbnailable(typ) {
				return nil, apierr.New(apierr.CodeInvalidFiles, "invalid "+name)
			}
			if img.thumb, img.thumbType, err = imagery.Thumbnail(part.Data, typ); err != nil {
				return nil, apierr.Wrap(apierr.CodeInvalidFiles, "invalid "+name, err)
			}
			if lat, lon, ok := imagery.GPS(part.Data); ok {
				img.gps = &models.GeoPoint{Latitude: lat, Longitude: lon}
			}
		}
		out[name] = img
	}
	return out, nil
}

// resolve checks the referenced dictionary entries and the health rule.
func (s *Service) resolve(ctx context.Context, f form.Form) (resolved, error) {
	speciesID, _ := f.Field(validate.FieldSpecies)
	stateID, _ := f.Field(validate.FieldState)
	badStateID, hasBadState := f.Field(validate.FieldBadState)

	refs := []ddb.DictRef{
		{Type: models.DictSpecies, ID: speciesID},
		{Type: models.DictState, ID: stateID},
	}
	if hasBadState {
		refs = append(refs, ddb.DictRef{Type: models.DictBadState, ID: badStateID})
	}
	items, err := s.dicts.Resolve(ctx, refs)
	if err != nil {
		return resolved{}, apierr.Wrap(apierr.CodeStoreFailure, "resolve dictionaries", err)
	}

	found := map[ddb.DictRef]string{}
	for _, it := range items {
		found[ddb.DictRef{Type: it.Type, ID: it.ID}] = it.Name
	}
	var r resolved
	var ok bool
	if r.species, ok = found[refs[0]]; !ok {
		return resolved{}, apierr.New(apierr.CodeUnknownSpecies, "unknown species")
	}
	if r.state, ok = found[refs[1]]; !ok {
		return resolved{}, apierr.New(apierr.CodeUnknownState, "unknown state")
	}

	unhealthy := dicts.SameLabel(r.state, s.cfg.UnhealthyLabel)
	switch {
	case dicts.SameLabel(r.state, s.cfg.HealthyLabel) && hasBadState:
		return resolved{}, apierr.New(apierr.CodeInconsistentState, "bad-state not allowed for a healthy tree")
	case unhealthy && !hasBadState:
		return resolved{}, apierr.New(apierr.CodeMissingBadState, "bad-state required for an unhealthy tree")
	case unhealthy:
		if r.badState, ok = found[refs[2]]; !ok {
			return resolved{}, apierr.New(apierr.CodeUnknownBadState, "unknown bad-state")
		}
	}

	if s.cfg.StateDescriptionPolicy == config.StateDescriptionUnlessUnhealthy && !unhealthy {
		if _, ok := f.Field(validate.FieldStateDescription); !ok {
			return resolved{}, apierr.New(apierr.CodeInvalidFields, "state-description required")
		}
	}
	return r, nil
}

// store uploads the images and returns a tree carrying their URLs.
func (s *Service) store(ctx context.Context, u *uploader, images map[string]sniffed) (models.Tree, error) {
	if err := s.blobs.EnsureContainer(ctx); err != nil {
		return models.Tree{}, apierr.Wrap(apierr.CodeStoreFailure, "ensure container", err)
	}

	var t models.Tree
	var err error
	tree := images[validate.FileTree]
	treeName := blobstore.NewName(tree.typ.Ext)
	if t.TreeImageURL, err = u.put(ctx, treeName, tree.part.Data, tree.typ.MIME); err != nil {
		return models.Tree{}, err
	}
	thumbName := blobstore.ThumbnailName(blobstore.WithExt(treeName, tree.thumbType.Ext))
	if t.TreeThumbnailURL, err = u.put(ctx, thumbName, tree.thumb, tree.thumbType.MIME); err != nil {
		return models.Tree{}, err
	}
	t.PhotoGPS = tree.gps

	leaf := images[validate.FileLeaf]
	if t.LeafImageURL, err = u.put(ctx, blobstore.NewName(leaf.typ.Ext), leaf.part.Data, leaf.typ.MIME); err != nil {
		return models.Tree{}, err
	}

	if bark, ok := images[validate.FileBark]; ok {
		if t.BarkImageURL, err = u.put(ctx, blobstore.NewName(bark.typ.Ext), bark.part.Data, bark.typ.MIME); err != nil {
			return models.Tree{}, err
		}
	}
	return t, nil
}

// compensate removes what this submission uploaded and returns cause.
func (s *Service) compensate(ctx context.Context, u *uploader, cause error) error {
	if len(u.names) == 0 {
		return cause
	}
	if err := u.rollback(context.WithoutCancel(ctx)); err != nil {
		s.log.Error("orphaned blobs", "blobs", u.names, "error", err)
	}
	return cause
}

// uploader records every blob it writes so a failed submission can undo them.
type uploader struct {
	store blobstore.Store
	names []string
}

func (u *uploader) put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	url, err := u.store.Put(ctx, name, data, contentType)
	if err != nil {
		return "", apierr.Wrap(apierr.CodeStoreFailure, "upload "+name, err)
	}
	u.names = append(u.names, name)
	return url, nil
}

func parsePerimeter(s string) float64 {
	n, _ := strconv.ParseFloat(s, 64)
	return n
}

func (u *uploader) rollback(ctx context.Context) error {
	var errs []error
	for _, name := range u.names {
		if err := u.store.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
