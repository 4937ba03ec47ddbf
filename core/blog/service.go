package blog

import (
	"context"
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
)

var (
	ErrNotFound       = core.NewNotFoundError("Blog post not found")
	errInvalidContent = "Content must be a document with a root node"
)

// Service is the Record Gateway for blog posts.
type Service struct {
	store      core.RecordStore
	validate   *validator.Validate
	translator ut.Translator
	nowFunc    func() time.Time
}

func NewService(store core.RecordStore, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		store:      store,
		validate:   validate,
		translator: translator,
		nowFunc:    time.Now,
	}
}

// List returns posts newest first.
func (svc *Service) List(ctx context.Context) ([]Post, error) {
	recs, err := svc.store.ListRecords(ctx, Table, core.ListOptions{
		Sort: []core.Ordering{{Field: ColDatePublished, Ascending: false}},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing blog posts")
	}
	recs = core.NonEmpty(recs)
	posts := make([]Post, 0, len(recs))
	for _, rec := range recs {
		posts = append(posts, fromRecord(rec))
	}
	return posts, nil
}

// Get returns the post along with its rendered HTML.
func (svc *Service) Get(ctx context.Context, id string) (Post, error) {
	id = core.CleanString(id)
	if id == "" {
		return Post{}, ErrNotFound
	}
	rec, err := svc.store.GetRecord(ctx, Table, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Post{}, ErrNotFound
		}
		return Post{}, pkgerrors.Wrap(err, "getting blog post")
	}
	if len(rec.Fields) == 0 {
		return Post{}, ErrNotFound
	}
	post := fromRecord(rec)
	post.ContentHTML = RenderHTML(post.Content)
	return post, nil
}

func (svc *Service) Create(ctx context.Context, np NewPost) (Post, error) {
	np.clean()
	if err := svc.validate.Struct(np); err != nil {
		return Post{}, core.TranslateValidation(err, svc.translator)
	}
	content := np.contentString()
	if _, err := ParseDocument(content); err != nil {
		return Post{}, core.NewValidationError(
			errors.New(errInvalidContent),
			core.FieldError{Field: "content", Error: errInvalidContent},
		)
	}

	published := np.DatePublished
	if published == "" {
		published = svc.nowFunc().Format("2006-01-02")
	}
	author := np.Author
	if author == "" {
		author = DefaultAuthor
	}

	rec, err := svc.store.CreateRecord(ctx, Table, map[string]interface{}{
		ColTitle:         np.Title,
		ColCategory:      np.Category,
		ColDescription:   np.Description,
		ColDatePublished: published,
		ColDateEdited:    np.DateEdited,
		ColAuthor:        author,
		ColContent:       content,
	})
	if err != nil {
		return Post{}, pkgerrors.Wrap(err, "creating blog post")
	}
	return fromRecord(rec), nil
}
