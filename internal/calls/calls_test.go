package calls

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"path"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/leadhub-backend/internal/auth"
	"github.com/aldoetobex/leadhub-backend/pkg/logger"
	"github.com/aldoetobex/leadhub-backend/pkg/models"
)

/* ============================================================================
   Helpers
   ============================================================================ */

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Agent{}, &models.Lead{}, &models.CallLog{},
		&models.CallScript{}, &models.LeadHistory{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeStore is an in-memory BlobStore so recording handlers run without a
// storage backend.
type fakeStore struct {
	objects map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) MakeObjectKey(leadID, filename string) string {
	return path.Join("recording", leadID, filename)
}

func (f *fakeStore) Upload(key string, r io.Reader, contentType string, size int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = b
	return nil
}

func (f *fakeStore) SignedURL(key string, expiresInSeconds int) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", fmt.Errorf("no such object: %s", key)
	}
	return "https://storage.test/" + key + "?sig=abc", nil
}

func (f *fakeStore) Delete(key string) error {
	delete(f.objects, key)
	return nil
}

func injectAuth(agentID uuid.UUID) fiber.Handler {
	id := agentID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", string(models.RoleAgent))
		return c.Next()
	}
}

func newTestApp(h *Handler, agentID uuid.UUID) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(injectAuth(agentID))
	app.Post("/api/calls/start", h.Start)
	app.Post("/api/calls/end", h.End)
	app.Get("/api/calls/active", h.Active)
	app.Get("/api/leads/:id/calls", h.ListByLead)
	app.Get("/api/leads/:id/script", h.Script)
	app.Post("/api/calls/:id/recording", h.UploadRecording)
	app.Delete("/api/calls/:id/recording", h.DeleteRecording)
	app.Get("/api/calls/:id/recording-url", h.RecordingURL)
	return app
}

func seedLead(t *testing.T, db *gorm.DB, status models.LeadStatus) models.Lead {
	t.Helper()
	lead := models.Lead{
		Name:     "Rakesh Kumar",
		Phone:    "+919876543210",
		Industry: models.IndustryRealEstate,
		Source:   models.SourceWebsite,
		Status:   status,
		Intent:   models.IntentWarm,
		Priority: models.PriorityMedium,
	}
	if err := db.Create(&lead).Error; err != nil {
		t.Fatal(err)
	}
	return lead
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (int, map[string]any) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func startCall(t *testing.T, app *fiber.App, leadID uuid.UUID) {
	t.Helper()
	code, body := doJSON(t, app, "POST", "/api/calls/start", fiber.Map{"lead_id": leadID.String()})
	if code != 201 {
		t.Fatalf("start call: want 201, got %d: %v", code, body)
	}
}

/* ============================================================================
   Tests
   ============================================================================ */

func Test_Start_UnknownLead_NotFound(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	code, _ := doJSON(t, app, "POST", "/api/calls/start", fiber.Map{"lead_id": uuid.NewString()})
	if code != 404 {
		t.Fatalf("want 404, got %d", code)
	}
}

func Test_Start_SecondCall_Conflict(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	a := seedLead(t, db, models.LeadNew)
	b := seedLead(t, db, models.LeadNew)

	startCall(t, app, a.ID)

	code, _ := doJSON(t, app, "POST", "/api/calls/start", fiber.Map{"lead_id": b.ID.String()})
	if code != 409 {
		t.Fatalf("second start: want 409, got %d", code)
	}

	// The original session is still the active one.
	code, body := doJSON(t, app, "GET", "/api/calls/active", nil)
	if code != 200 {
		t.Fatalf("active: want 200, got %d", code)
	}
	if body["lead_id"] != a.ID.String() {
		t.Fatalf("active session points at %v, want %s", body["lead_id"], a.ID)
	}
}

// First call on a fresh lead: interested outcome qualifies the lead and both
// contact timestamps are stamped.
func Test_End_InterestedFromNew_QualifiesLead(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	lead := seedLead(t, db, models.LeadNew)
	startCall(t, app, lead.ID)

	code, body := doJSON(t, app, "POST", "/api/calls/end", fiber.Map{
		"outcome": "interested",
		"notes":   "wants a 2BHK near the metro line",
	})
	if code != 201 {
		t.Fatalf("end call: want 201, got %d: %v", code, body)
	}
	if body["lead_status"] != "qualified" {
		t.Fatalf("lead_status = %v, want qualified", body["lead_status"])
	}

	var got models.Lead
	if err := db.First(&got, "id = ?", lead.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.Status != models.LeadQualified {
		t.Fatalf("stored status = %q", got.Status)
	}
	if got.FirstContactAt == nil || got.LastContactAt == nil {
		t.Fatal("both contact timestamps must be stamped on the first call")
	}

	var logs int64
	db.Model(&models.CallLog{}).Where("lead_id = ?", lead.ID).Count(&logs)
	if logs != 1 {
		t.Fatalf("call logs = %d, want 1", logs)
	}

	// Auto-transition leaves an audit trail.
	var hist models.LeadHistory
	if err := db.First(&hist, "lead_id = ? AND action = ?", lead.ID, "call_logged").Error; err != nil {
		t.Fatalf("missing call_logged history row: %v", err)
	}
	if hist.OldStatus != models.LeadNew || hist.NewStatus != models.LeadQualified {
		t.Fatalf("history %s → %s", hist.OldStatus, hist.NewStatus)
	}

	// Session is gone after a successful submit.
	code, _ = doJSON(t, app, "GET", "/api/calls/active", nil)
	if code != 404 {
		t.Fatalf("active after end: want 404, got %d", code)
	}
}

// A later call never auto-moves the lead; first_contact_at is set once and
// only last_contact_at keeps advancing.
func Test_End_SecondCall_KeepsStatusAndFirstContact(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	first := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Second)
	lead := seedLead(t, db, models.LeadQualified)
	if err := db.Model(&lead).Updates(map[string]any{
		"first_contact_at": first,
		"last_contact_at":  first,
	}).Error; err != nil {
		t.Fatal(err)
	}

	startCall(t, app, lead.ID)
	code, body := doJSON(t, app, "POST", "/api/calls/end", fiber.Map{"outcome": "interested"})
	if code != 201 {
		t.Fatalf("end call: want 201, got %d: %v", code, body)
	}
	if body["lead_status"] != "qualified" {
		t.Fatalf("lead_status = %v, want qualified (unchanged)", body["lead_status"])
	}

	var got models.Lead
	_ = db.First(&got, "id = ?", lead.ID).Error
	if got.Status != models.LeadQualified {
		t.Fatalf("status moved to %q on a non-new lead", got.Status)
	}
	if got.FirstContactAt == nil || !got.FirstContactAt.Equal(first) {
		t.Fatalf("first_contact_at changed: %v, want %v", got.FirstContactAt, first)
	}
	if got.LastContactAt == nil || !got.LastContactAt.After(first) {
		t.Fatalf("last_contact_at did not advance: %v", got.LastContactAt)
	}
}

// An abandoned call (no outcome) still logs and still moves the timestamps,
// but the status stays put.
func Test_End_WithoutOutcome_TimestampsOnly(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	lead := seedLead(t, db, models.LeadNew)
	startCall(t, app, lead.ID)

	code, body := doJSON(t, app, "POST", "/api/calls/end", fiber.Map{})
	if code != 201 {
		t.Fatalf("end call: want 201, got %d: %v", code, body)
	}
	if body["lead_status"] != "new" {
		t.Fatalf("lead_status = %v, want new", body["lead_status"])
	}

	var got models.Lead
	_ = db.First(&got, "id = ?", lead.ID).Error
	if got.Status != models.LeadNew {
		t.Fatalf("status = %q, want new", got.Status)
	}
	if got.FirstContactAt == nil || got.LastContactAt == nil {
		t.Fatal("timestamps must move even without an outcome")
	}

	var entry models.CallLog
	if err := db.First(&entry, "lead_id = ?", lead.ID).Error; err != nil {
		t.Fatal(err)
	}
	if entry.Outcome != nil {
		t.Fatalf("outcome should be null, got %v", *entry.Outcome)
	}
}

func Test_End_NoActiveCall_Conflict(t *testing.T) {
	db := openTestDB(t)
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), uuid.New())

	code, _ := doJSON(t, app, "POST", "/api/calls/end", fiber.Map{"outcome": "interested"})
	if code != 409 {
		t.Fatalf("want 409, got %d", code)
	}
}

func Test_End_BadOutcome_Rejected_SessionSurvives(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	lead := seedLead(t, db, models.LeadNew)
	startCall(t, app, lead.ID)

	code, _ := doJSON(t, app, "POST", "/api/calls/end", fiber.Map{"outcome": "maybe_later"})
	if code != 400 {
		t.Fatalf("want 400, got %d", code)
	}

	// The rejected submit keeps the session so the agent can retry.
	code, _ = doJSON(t, app, "GET", "/api/calls/active", nil)
	if code != 200 {
		t.Fatalf("session lost after rejected submit: got %d", code)
	}

	// Retry with a valid outcome succeeds.
	code, _ = doJSON(t, app, "POST", "/api/calls/end", fiber.Map{"outcome": "follow_up_required"})
	if code != 201 {
		t.Fatalf("retry: want 201, got %d", code)
	}
}

func Test_ListByLead_Paginates(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	lead := seedLead(t, db, models.LeadContacted)
	for i := 0; i < 3; i++ {
		if err := db.Create(&models.CallLog{
			LeadID:       lead.ID,
			AgentID:      agentID,
			CallDuration: 60 + i,
		}).Error; err != nil {
			t.Fatal(err)
		}
	}

	code, body := doJSON(t, app, "GET", "/api/leads/"+lead.ID.String()+"/calls?pageSize=2", nil)
	if code != 200 {
		t.Fatalf("want 200, got %d", code)
	}
	if body["total"].(float64) != 3 {
		t.Fatalf("total = %v, want 3", body["total"])
	}
	if items := body["items"].([]any); len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if body["pages"].(float64) != 2 {
		t.Fatalf("pages = %v, want 2", body["pages"])
	}
}

func Test_Script_RendersPlaceholders(t *testing.T) {
	db := openTestDB(t)
	agent := models.Agent{Email: "priya@leadhub.test", PasswordHash: "x", Role: models.RoleAgent, Name: "Priya"}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatal(err)
	}
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agent.ID)

	lead := seedLead(t, db, models.LeadNew)
	if err := db.Create(&models.CallScript{
		Industry:   models.IndustryRealEstate,
		ScriptType: "cold_call",
		Title:      "Real estate opener",
		Content:    "Hi {{lead_name}}, this is {{agent_name}} from {{company_name}}.",
		IsActive:   true,
	}).Error; err != nil {
		t.Fatal(err)
	}

	code, body := doJSON(t, app, "GET", "/api/leads/"+lead.ID.String()+"/script", nil)
	if code != 200 {
		t.Fatalf("want 200, got %d: %v", code, body)
	}
	want := "Hi Rakesh Kumar, this is Priya from our company."
	if body["content"] != want {
		t.Fatalf("content = %q, want %q", body["content"], want)
	}
}

func Test_Script_NoActiveScript_NotFound(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	lead := seedLead(t, db, models.LeadNew)
	// Inactive scripts don't count.
	if err := db.Create(&models.CallScript{
		Industry:   models.IndustryRealEstate,
		ScriptType: "cold_call",
		Title:      "Retired opener",
		Content:    "old",
		IsActive:   false,
	}).Error; err != nil {
		t.Fatal(err)
	}

	code, _ := doJSON(t, app, "GET", "/api/leads/"+lead.ID.String()+"/script", nil)
	if code != 404 {
		t.Fatalf("want 404, got %d", code)
	}
}

func uploadRecording(t *testing.T, app *fiber.App, callID, filename, contentType string, data []byte) (int, map[string]any) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	_ = w.Close()

	req := httptest.NewRequest("POST", "/api/calls/"+callID+"/recording", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// Upload, second-upload conflict, delete, re-upload: the full recording
// lifecycle against the object store.
func Test_UploadRecording_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	store := newFakeStore()
	app := newTestApp(NewHandler(db, NewSessionManager(), store, logger.New()), agentID)

	lead := seedLead(t, db, models.LeadContacted)
	entry := models.CallLog{LeadID: lead.ID, AgentID: agentID, CallDuration: 30}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatal(err)
	}

	code, body := uploadRecording(t, app, entry.ID.String(), "call.mp3", "audio/mpeg", []byte("mp3bytes"))
	if code != 201 {
		t.Fatalf("upload: want 201, got %d: %v", code, body)
	}
	key := body["key"].(string)
	if _, ok := store.objects[key]; !ok {
		t.Fatalf("object %q not stored", key)
	}

	var got models.CallLog
	_ = db.First(&got, "id = ?", entry.ID).Error
	if got.RecordingURL == nil || *got.RecordingURL != key {
		t.Fatalf("recording_url = %v, want %q", got.RecordingURL, key)
	}

	// One recording per call log.
	code, _ = uploadRecording(t, app, entry.ID.String(), "again.mp3", "audio/mpeg", []byte("x"))
	if code != 409 {
		t.Fatalf("second upload: want 409, got %d", code)
	}

	// The signed URL points at the stored object.
	code, body = doJSON(t, app, "GET", "/api/calls/"+entry.ID.String()+"/recording-url", nil)
	if code != 200 {
		t.Fatalf("recording-url: want 200, got %d", code)
	}
	if body["url"] != "https://storage.test/"+key+"?sig=abc" {
		t.Fatalf("url = %v", body["url"])
	}

	// Delete clears pointer and object, making room for a corrected file.
	code, _ = doJSON(t, app, "DELETE", "/api/calls/"+entry.ID.String()+"/recording", nil)
	if code != 200 {
		t.Fatalf("delete: want 200, got %d", code)
	}
	if _, ok := store.objects[key]; ok {
		t.Fatal("object must be removed from storage")
	}
	_ = db.First(&got, "id = ?", entry.ID).Error
	if got.RecordingURL != nil {
		t.Fatalf("recording_url not cleared: %v", *got.RecordingURL)
	}
	code, _ = doJSON(t, app, "DELETE", "/api/calls/"+entry.ID.String()+"/recording", nil)
	if code != 404 {
		t.Fatalf("delete with nothing attached: want 404, got %d", code)
	}

	code, _ = uploadRecording(t, app, entry.ID.String(), "fixed.wav", "audio/wav", []byte("wavbytes"))
	if code != 201 {
		t.Fatalf("re-upload after delete: want 201, got %d", code)
	}
}

// Only the agent who made the call may touch its audio.
func Test_UploadRecording_ForeignAgent_Forbidden(t *testing.T) {
	db := openTestDB(t)
	owner := uuid.New()
	stranger := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), stranger)

	lead := seedLead(t, db, models.LeadContacted)
	key := "recording/" + lead.ID.String() + "/x.mp3"
	entry := models.CallLog{LeadID: lead.ID, AgentID: owner, CallDuration: 30, RecordingURL: &key}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatal(err)
	}

	code, _ := uploadRecording(t, app, entry.ID.String(), "call.mp3", "audio/mpeg", []byte("x"))
	if code != 403 {
		t.Fatalf("foreign upload: want 403, got %d", code)
	}
	code, _ = doJSON(t, app, "DELETE", "/api/calls/"+entry.ID.String()+"/recording", nil)
	if code != 403 {
		t.Fatalf("foreign delete: want 403, got %d", code)
	}
}

func Test_UploadRecording_RejectsNonAudio(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	store := newFakeStore()
	app := newTestApp(NewHandler(db, NewSessionManager(), store, logger.New()), agentID)

	lead := seedLead(t, db, models.LeadContacted)
	entry := models.CallLog{LeadID: lead.ID, AgentID: agentID, CallDuration: 30}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatal(err)
	}

	code, _ := uploadRecording(t, app, entry.ID.String(), "notes.txt", "text/plain", []byte("hello"))
	if code != 400 {
		t.Fatalf("want 400, got %d", code)
	}
	if len(store.objects) != 0 {
		t.Fatal("nothing may reach storage on a rejected upload")
	}

	var got models.CallLog
	_ = db.First(&got, "id = ?", entry.ID).Error
	if got.RecordingURL != nil {
		t.Fatal("recording_url must stay empty")
	}
}

func Test_RecordingURL_NoneAttached_NotFound(t *testing.T) {
	db := openTestDB(t)
	agentID := uuid.New()
	app := newTestApp(NewHandler(db, NewSessionManager(), newFakeStore(), logger.New()), agentID)

	lead := seedLead(t, db, models.LeadContacted)
	bare := models.CallLog{LeadID: lead.ID, AgentID: agentID, CallDuration: 30}
	if err := db.Create(&bare).Error; err != nil {
		t.Fatal(err)
	}

	code, _ := doJSON(t, app, "GET", "/api/calls/"+bare.ID.String()+"/recording-url", nil)
	if code != 404 {
		t.Fatalf("no recording: want 404, got %d", code)
	}
}
