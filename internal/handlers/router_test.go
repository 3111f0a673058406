package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xelth-com/eckreport/internal/config"
	"github.com/xelth-com/eckreport/internal/models"
	"github.com/xelth-com/eckreport/internal/services/report"
	"github.com/xelth-com/eckreport/internal/services/visit"
	"github.com/xelth-com/eckreport/internal/session"
	"github.com/xelth-com/eckreport/web"
)

type testServer struct {
	*httptest.Server
	client *http.Client
	store  *session.Store
}

func testConfig() *config.Config {
	return &config.Config{
		NodeEnv: "test",
		Session: config.SessionConfig{Secret: "test-secret", TTL: time.Hour, CookieName: "visit_session"},
		Report:  config.ReportConfig{MaxUploadBytes: 1 << 20},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, store *session.Store) *Router {
	t.Helper()
	visits := visit.NewService(report.NewCompiler(report.Options{FontSearchDirs: []string{}}, nil), nil)

	assets, err := web.GetFileSystem()
	require.NoError(t, err)
	router, err := NewRouter(cfg, store, visits, assets, nil)
	require.NoError(t, err)
	return router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := session.NewStore(time.Hour, nil)
	router := newTestRouter(t, testConfig(), store)

	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{Server: srv, client: &http.Client{Jar: jar}, store: store}
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	res, err := s.client.Get(s.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

// submit posts the visit form; files maps field names to file contents
func (s *testServer) submit(t *testing.T, fields map[string]string, files map[string][]byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for k, data := range files {
		fw, err := mw.CreateFormFile(k, k+".bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	res, err := s.client.Post(s.URL+"/api/visits", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func visitFields(company, capture string) map[string]string {
	return map[string]string{
		"name":        "Ana",
		"company":     company,
		"date":        "2024-03-01",
		"purpose":     "Instalación",
		"time_in":     "09:00",
		"time_out":    "11:30",
		"description": "Revisión de panel\nCambio de fusible",
		"capture":     capture,
	}
}

func blackPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.Black)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func canvasFields(t *testing.T, company string) map[string]string {
	f := visitFields(company, "canvas")
	f["signature_canvas"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(blackPNG(t))
	return f
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func decode(t *testing.T, res *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	res := s.get(t, "/health")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body map[string]interface{}
	decode(t, res, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.Empty(t, res.Cookies(), "health must not open a session")
}

func TestShowForm(t *testing.T) {
	s := newTestServer(t)
	res := s.get(t, "/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	for _, want := range []string{"Tu Nombre", "Empresa XYZ", "Mantenimiento", "Auditoría", "signature_canvas"} {
		assert.Contains(t, string(page), want)
	}
	assert.Equal(t, 1, s.store.Len())

	static := s.get(t, "/static/app.js")
	assert.Equal(t, http.StatusOK, static.StatusCode)
}

func TestSubmitAndDownload(t *testing.T) {
	s := newTestServer(t)
	res := s.submit(t, canvasFields(t, "Acme"), nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var body SubmitResponse
	decode(t, res, &body)
	assert.Equal(t, 1, body.Row)
	assert.Equal(t, "Acme", body.Record.Company)
	require.Len(t, body.Downloads, 3)

	want := map[report.Kind]string{
		report.KindSpreadsheet: "Visitas_20240301.xlsx",
		report.KindDocument:    "Reporte_Acme_2024-03-01.pdf",
		report.KindImage:       "Foto_Reporte_Acme.jpg",
	}
	for _, d := range body.Downloads {
		require.NotEmpty(t, d.URL, "%s should be downloadable: %s", d.Kind, d.Error)
		assert.Equal(t, want[d.Kind], d.Filename)

		dl := s.get(t, d.URL)
		assert.Equal(t, http.StatusOK, dl.StatusCode)
		assert.Equal(t, d.ContentType, dl.Header.Get("Content-Type"))

		_, params, err := mime.ParseMediaType(dl.Header.Get("Content-Disposition"))
		require.NoError(t, err)
		assert.Equal(t, d.Filename, params["filename"])
	}

	var table models.Table
	decode(t, s.get(t, "/api/visits"), &table)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, models.SignatureMarker, table.Rows[0][6])

	sig := s.get(t, "/api/signature")
	assert.Equal(t, http.StatusOK, sig.StatusCode)
	assert.Equal(t, "image/png", sig.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/reports/latest/zip").StatusCode)
}

func TestSubmitWithoutSignature(t *testing.T) {
	s := newTestServer(t)

	for _, capture := range []string{"camera", "upload", "canvas", "pad"} {
		res := s.submit(t, visitFields("Acme", capture), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, capture)

		var body map[string]string
		decode(t, res, &body)
		assert.Equal(t, visit.ErrMissingSignature.Error(), body["error"])
	}

	var table models.Table
	decode(t, s.get(t, "/api/visits"), &table)
	assert.Empty(t, table.Rows)
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/reports/latest/pdf").StatusCode)
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/signature").StatusCode)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	s := newTestServer(t)

	fields := canvasFields(t, "Acme")
	delete(fields, "name")
	assert.Equal(t, http.StatusBadRequest, s.submit(t, fields, nil).StatusCode)

	fields = canvasFields(t, "Acme")
	fields["capture"] = "fax"
	assert.Equal(t, http.StatusBadRequest, s.submit(t, fields, nil).StatusCode)

	res := s.submit(t, visitFields("Acme", "upload"), map[string][]byte{"signature_file": []byte("GIF89a not accepted")})
	assert.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode)

	var table models.Table
	decode(t, s.get(t, "/api/visits"), &table)
	assert.Empty(t, table.Rows)
}

func TestSubmitTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Report.MaxUploadBytes = 1 << 10
	store := session.NewStore(time.Hour, nil)
	h := newTestRouter(t, cfg, store).Handler()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range visitFields("Acme", "upload") {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("signature_file", "huge.png")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte{0x89}, 2<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/visits", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")
}

func TestSubmitUploadAndCamera(t *testing.T) {
	s := newTestServer(t)

	res := s.submit(t, visitFields("Acme", "upload"), map[string][]byte{"signature_file": blackPNG(t)})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res = s.submit(t, visitFields("Globex", "camera"), map[string][]byte{"signature_camera": blackPNG(t)})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	var body SubmitResponse
	decode(t, res, &body)
	assert.Equal(t, 2, body.Row)
}

func TestSubmitUndecodableSignatureKeepsRow(t *testing.T) {
	s := newTestServer(t)
	res := s.submit(t, visitFields("Acme", "camera"), map[string][]byte{"signature_camera": []byte("garbage")})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var body SubmitResponse
	decode(t, res, &body)
	for _, d := range body.Downloads {
		if d.Kind == report.KindSpreadsheet {
			assert.NotEmpty(t, d.URL)
			continue
		}
		assert.Empty(t, d.URL)
		assert.NotEmpty(t, d.Error)
	}
	assert.Equal(t, http.StatusOK, s.get(t, "/api/reports/latest/xlsx").StatusCode)
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/reports/latest/jpg").StatusCode)
}

func TestSubmitPadStrokes(t *testing.T) {
	s := newTestServer(t)
	fields := visitFields("Acme", "pad")
	fields["signature_pad"] = `{"width":300,"height":100,"strokes":[[{"x":10,"y":10},{"x":290,"y":90}]]}`

	res := s.submit(t, fields, nil)
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	fields["signature_pad"] = `{not json`
	assert.Equal(t, http.StatusBadRequest, s.submit(t, fields, nil).StatusCode)
}

func TestPadSocketFeedsSubmission(t *testing.T) {
	s := newTestServer(t)
	s.get(t, "/") // open a session

	header := http.Header{}
	for _, c := range s.client.Jar.Cookies(mustURL(t, s.URL)) {
		header.Add("Cookie", c.String())
	}
	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/ws/pad", header)
	require.NoError(t, err)
	defer conn.Close()

	var ack struct {
		Type    string `json:"type"`
		Strokes int    `json:"strokes"`
	}
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "PAD_RESIZE", "width": 300, "height": 100}))
	require.NoError(t, conn.ReadJSON(&ack))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   "PAD_STROKE",
		"points": []map[string]float64{{"x": 10, "y": 10}, {"x": 290, "y": 90}},
	}))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "ACK", ack.Type)
	assert.Equal(t, 1, ack.Strokes)

	res := s.submit(t, visitFields("Acme", "pad"), nil)
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	// The buffer is consumed by a successful submission
	res = s.submit(t, visitFields("Acme", "pad"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
}

func TestHistoryDownload(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.submit(t, canvasFields(t, "Acme"), nil).StatusCode)
	require.Equal(t, http.StatusCreated, s.submit(t, canvasFields(t, "Globex"), nil).StatusCode)

	res := s.get(t, "/api/history.xlsx")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, report.ContentTypeSpreadsheet, res.Header.Get("Content-Type"))

	f, err := excelize.OpenReader(res.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Acme", rows[1][1])
	assert.Equal(t, "Globex", rows[2][1])
}

func TestEndSession(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.submit(t, canvasFields(t, "Acme"), nil).StatusCode)

	res, err := s.client.Post(s.URL+"/api/session/end", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var table models.Table
	decode(t, s.get(t, "/api/visits"), &table)
	assert.Empty(t, table.Rows, "a new session starts with an empty history")
}

func TestFormQRCode(t *testing.T) {
	s := newTestServer(t)
	res := s.get(t, "/api/qr")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))

	img, err := png.Decode(res.Body)
	require.NoError(t, err)
	assert.Equal(t, QRCodeSize, img.Bounds().Dx())
}
