package webserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/google/uuid"

	"crosspost/internal/compose"
	"crosspost/internal/config"
	"crosspost/internal/models"
	"crosspost/internal/posttypes"
	"crosspost/internal/services"
	"crosspost/internal/uploadform"
)

const (
	defaultMaxMemory   = 32 << 20 // 32 MB of file parts are kept in memory
	defaultMaxFileSize = 50 << 20
	folderLayout       = "20060102_150405"
)

// FormHandler serves the upload form and takes its submissions.
type FormHandler struct {
	posts        services.PostService
	storage      posttypes.StorageService
	pages        *Pages
	destinations []uploadform.Destination
	postCfg      config.PostConfig
	storageCfg   config.StorageConfig
	loc          *time.Location
	now          func() time.Time
}

// NewFormHandler 创建一个新的 FormHandler 实例。
func NewFormHandler(posts services.PostService, storage posttypes.StorageService, pages *Pages, cfg config.Config) *FormHandler {
	dests := uploadform.LookupDestinations(cfg.Post.Destinations)
	if len(dests) == 0 {
		dests = uploadform.DefaultDestinations
	}
	return &FormHandler{
		posts:        posts,
		storage:      storage,
		pages:        pages,
		destinations: dests,
		postCfg:      cfg.Post,
		storageCfg:   cfg.Storage,
		loc:          cfg.Post.Location(),
		now:          time.Now,
	}
}

func (h *FormHandler) maxFiles() int {
	if h.storageCfg.MaxFiles > 0 {
		return h.storageCfg.MaxFiles
	}
	return compose.DefaultMaxFiles
}

func (h *FormHandler) maxFileSize() int64 {
	if h.storageCfg.MaxFileSizeMB > 0 {
		return h.storageCfg.MaxFileSizeMB << 20
	}
	return defaultMaxFileSize
}

func (h *FormHandler) charLimit() int {
	if h.postCfg.CharLimit > 0 {
		return h.postCfg.CharLimit
	}
	return uploadform.DefaultCharLimit
}

type destinationView struct {
	Field   string
	Label   string
	Checked bool
}

// renderForm renders the form page. values refill the text fields after a
// rejected submission; files cannot be refilled.
func (h *FormHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, errMsg string, values url.Values) {
	dests := make([]destinationView, 0, len(h.destinations))
	for _, d := range h.destinations {
		dests = append(dests, destinationView{Field: d.Field, Label: d.Label, Checked: values.Get(d.Field) == "on"})
	}
	text := values.Get(uploadform.TextField)
	hashtags := values.Get(uploadform.HashtagTextField)
	optIn := values.Get(uploadform.HashtagOptInField) == "on"

	h.pages.Render(w, status, "index", pongo2.Context{
		"flash":         popFlash(w, r),
		"error":         errMsg,
		"destinations":  dests,
		"text":          text,
		"hashtags":      hashtags,
		"hashtagOptIn":  optIn,
		"count":         uploadform.CharCount(text, hashtags, optIn),
		"charLimit":     h.charLimit(),
		"maxFiles":      h.maxFiles(),
		"variant":       uploadform.Ordering.String(),
		"timeZone":      h.loc.String(),
		"scheduledTime": values.Get(uploadform.ScheduledField),
	})
}

// Index 处理 GET /，渲染上传表单。
func (h *FormHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "", nil)
}

// Submit 处理 POST /submit。
// A rejected form is rendered again with the reason and 422; an accepted one
// redirects to the form with the outcome as a flash message.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize()*int64(h.maxFiles()+1))

	sub, err := compose.ParseSubmission(r, defaultMaxMemory, h.destinations, h.loc)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderForm(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload too large, each image may have at most %d MB.", h.maxFileSize()>>20), nil)
			return
		}
		log.Printf("submit: %v", err)
		h.renderForm(w, r, http.StatusUnprocessableEntity, compose.UserMessage(err), r.PostForm)
		return
	}

	if err := sub.Validate(h.maxFiles()); err != nil {
		log.Printf("submit rejected: %v", err)
		h.renderForm(w, r, http.StatusUnprocessableEntity, compose.UserMessage(err), r.PostForm)
		return
	}
	for _, a := range sub.Attachments {
		if a.File.Size > h.maxFileSize() {
			h.renderForm(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("%s is too large, each image may have at most %d MB.", a.File.Filename, h.maxFileSize()>>20), r.PostForm)
			return
		}
	}

	now := h.now()
	post := compose.Compose(sub, now, h.loc)
	log.Printf("submit: %d images, destinations %v, scheduled %v", len(post.Attachments), post.DestinationLabels(), post.ScheduledAt != nil)

	payload := models.PostPayload{
		Subject:      post.Subject,
		Text:         post.Text,
		TextHTML:     post.TextHTML,
		Destinations: post.DestinationLabels(),
		TextOnly:     len(post.Attachments) == 0,
	}
	if !payload.TextOnly {
		payload.Folder = postFolder(now.In(h.loc))
		images, err := h.saveAttachments(r.Context(), payload.Folder, post.Attachments)
		if err != nil {
			log.Printf("submit: %v", err)
			setFlash(w, "Upload failed! error: "+err.Error())
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		payload.Images = images
	}

	res, err := h.posts.Submit(r.Context(), payload, post.ScheduledAt)
	switch {
	case err != nil && post.ScheduledAt != nil:
		log.Printf("scheduling failed: %v", err)
		setFlash(w, "Scheduling has failed! error: "+err.Error())
	case err != nil:
		log.Printf("posting failed: %v", err)
		setFlash(w, "Posting has failed! error: "+err.Error())
	default:
		setFlash(w, res.Message())
	}
	log.Printf("OVERALL execution time: %v", h.now().Sub(start))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// postFolder names a post's upload folder: the submit time plus a short
// random suffix, so posts in the same second never share files.
func postFolder(t time.Time) string {
	return t.Format(folderLayout) + "_" + uuid.NewString()[:8]
}

// saveAttachments stores the images in publishing order. A failure removes
// what was already stored.
func (h *FormHandler) saveAttachments(ctx context.Context, folder string, atts []compose.OrderedAttachment) ([]models.PostImage, error) {
	images := make([]models.PostImage, 0, len(atts))
	for _, a := range atts {
		info, err := h.saveAttachment(ctx, folder, a)
		if err != nil {
			if rmErr := h.storage.RemoveFolder(ctx, folder); rmErr != nil {
				log.Printf("cleanup of %s failed: %v", folder, rmErr)
			}
			return nil, fmt.Errorf("save %s: %w", a.File.Filename, err)
		}
		images = append(images, models.PostImage{
			FileName: info.FileName,
			URL:      info.URL,
			Path:     info.Path,
			Alt:      a.Alt,
		})
	}
	return images, nil
}

func (h *FormHandler) saveAttachment(ctx context.Context, folder string, a compose.OrderedAttachment) (*posttypes.FileInfo, error) {
	f, err := a.File.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.storage.SaveAttachment(ctx, folder, a.FileName, a.Extension(), f, a.File.Size, a.File.Header.Get("Content-Type"))
}
