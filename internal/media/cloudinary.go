package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

type CloudinaryConfig struct {
	CloudName   string        `koanf:"cloud_name"`
	APIKey      string        `koanf:"api_key"`
	APISecret   string        `koanf:"api_secret"`
	APIBaseURL  string        `koanf:"api_base_url"`  // por defecto https://api.cloudinary.com
	DeliveryURL string        `koanf:"delivery_url"`  // por defecto https://res.cloudinary.com
	Timeout     time.Duration `koanf:"timeout"`
	// FailureThreshold fallos seguidos que abren el circuito.
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
}

// CloudinaryStore habla con la Upload API firmada de Cloudinary.
type CloudinaryStore struct {
	cfg     CloudinaryConfig
	folder  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	now     func() time.Time
}

func NewCloudinaryStore(cfg CloudinaryConfig, folder string, client *http.Client) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary: cloud_name, api_key and api_secret are required")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.cloudinary.com"
	}
	if cfg.DeliveryURL == "" {
		cfg.DeliveryURL = "https://res.cloudinary.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "cloudinary",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// los 4xx y los abortos del llamante no cuentan contra el host
		IsSuccessful: func(err error) bool {
			var apiErr *cloudinaryError
			switch {
			case err == nil:
				return true
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return true
			case errors.As(err, &apiErr):
				return apiErr.status < 500
			}
			return false
		},
	})

	return &CloudinaryStore{cfg: cfg, folder: folder, client: client, breaker: breaker, now: time.Now}, nil
}

type cloudinaryError struct {
	status  int
	message string
}

func (e *cloudinaryError) Error() string {
	return fmt.Sprintf("cloudinary: status %d: %s", e.status, e.message)
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Result    string `json:"result"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *CloudinaryStore) endpoint(action string) string {
	return fmt.Sprintf("%s/v1_1/%s/image/%s", strings.TrimRight(s.cfg.APIBaseURL, "/"), s.cfg.CloudName, action)
}

// sign firma los parámetros según el esquema de Cloudinary: claves ordenadas, sha1(query+secret).
func (s *CloudinaryStore) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "&") + s.cfg.APISecret))
	return hex.EncodeToString(sum[:])
}

func (s *CloudinaryStore) signedParams(params map[string]string) map[string]string {
	params["timestamp"] = strconv.FormatInt(s.now().Unix(), 10)
	params["signature"] = s.sign(params)
	params["api_key"] = s.cfg.APIKey
	return params
}

func (s *CloudinaryStore) Upload(ctx context.Context, f *File) (string, error) {
	params := map[string]string{"public_id": uuid.NewString()}
	if s.folder != "" {
		params["folder"] = s.folder
	}
	params = s.signedParams(params)

	secureURL, err := s.breaker.Execute(func() (string, error) {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			pw.CloseWithError(writeUploadBody(mw, params, f))
		}()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("upload"), pr)
		if err != nil {
			_ = pr.Close()
			return "", err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())

		var out cloudinaryResponse
		if err := s.do(req, &out); err != nil {
			_ = pr.Close()
			return "", err
		}
		if out.SecureURL == "" {
			return "", errEmptyResponse
		}
		return out.SecureURL, nil
	})
	return secureURL, breakerErr(err)
}

// breakerErr traduce el circuito abierto a ErrUnavailable.
func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func writeUploadBody(mw *multipart.Writer, params map[string]string, f *File) error {
	for k, v := range params {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	name := f.Filename
	if name == "" {
		name = "upload"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return err
	}
	return mw.Close()
}

func (s *CloudinaryStore) Delete(ctx context.Context, rawURL string) error {
	publicID, ok := PublicIDFromURL(rawURL)
	if !ok || !s.Owns(rawURL) {
		return ErrNotOwned
	}
	params := s.signedParams(map[string]string{"public_id": publicID})
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	_, err := s.breaker.Execute(func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("destroy"), strings.NewReader(form.Encode()))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var out cloudinaryResponse
		if err := s.do(req, &out); err != nil {
			return "", err
		}
		// "not found" también deja el estado deseado
		if out.Result != "ok" && out.Result != "not found" {
			return "", fmt.Errorf("cloudinary destroy %s: result %q", publicID, out.Result)
		}
		return out.Result, nil
	})
	return breakerErr(err)
}

func (s *CloudinaryStore) do(req *http.Request, out *cloudinaryResponse) error {
	resp, err := s.client.Do(req)
	if err != nil {
		// cancelación o deadline del llamante: no es fallo del host
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("cloudinary: %w", ctxErr)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("cloudinary: decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return &cloudinaryError{status: resp.StatusCode, message: msg}
	}
	return nil
}

func (s *CloudinaryStore) Owns(rawURL string) bool {
	for _, base := range []string{s.cfg.DeliveryURL, strings.Replace(s.cfg.DeliveryURL, "https://", "http://", 1)} {
		if strings.HasPrefix(rawURL, strings.TrimRight(base, "/")+"/"+s.cfg.CloudName+"/") {
			return true
		}
	}
	return false
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// PublicIDFromURL extrae "carpeta/nombre" de una URL de entrega:
// https://res.cloudinary.com/<cloud>/image/upload/v123/carpeta/nombre.jpg
func PublicIDFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	_, rest, found := strings.Cut(u.Path, "/upload/")
	if !found || rest == "" {
		return "", false
	}
	segs := strings.Split(rest, "/")
	if len(segs) > 1 && versionSegment.MatchString(segs[0]) {
		segs = segs[1:]
	}
	id := strings.Join(segs, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return "", false
	}
	return id, true
}
