package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/duskcore/agentd/internal/airlock"
	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
	"github.com/duskcore/agentd/internal/infrastructure/persistence"
	"github.com/duskcore/agentd/internal/infrastructure/persistence/models"
	_ "github.com/duskcore/agentd/internal/provider/openai" // register "openai" factory for RouterHandler tests
	"github.com/duskcore/agentd/internal/router"
	"github.com/duskcore/agentd/internal/vault"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func doJSON(method, path string, body interface{}, handler gin.HandlerFunc, params gin.Params) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Params = params
	handler(c)
	return rec
}

func TestAirlockHandler_RespondUnknownCommandReturnsFalse(t *testing.T) {
	gate := airlock.New(false, nil, zap.NewNop())
	h := NewAirlockHandler(gate, zap.NewNop())

	rec := doJSON(http.MethodPost, "/v1/airlock/respond", respondRequest{CommandID: "nope", Approved: true}, h.Respond, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["success"] {
		t.Fatal("expected success=false for unknown command")
	}
}

func TestAirlockHandler_SetHeadlessMode(t *testing.T) {
	gate := airlock.New(false, nil, zap.NewNop())
	h := NewAirlockHandler(gate, zap.NewNop())

	rec := doJSON(http.MethodPost, "/v1/airlock/headless", headlessRequest{Enabled: true}, h.SetHeadlessMode, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cmd := &entity.QueuedCommand{ID: "c1", AirlockLevel: entity.AirlockSensitive}
	decision, _ := gate.Check(cmd)
	if decision != airlock.Allow {
		t.Fatalf("expected headless mode to auto-allow sensitive commands, got %v", decision)
	}
}

func TestAirlockHandler_PendingApprovals(t *testing.T) {
	gate := airlock.New(false, nil, zap.NewNop())
	h := NewAirlockHandler(gate, zap.NewNop())

	go gate.Check(&entity.QueuedCommand{ID: "pending-1", AirlockLevel: entity.AirlockDangerous})
	time.Sleep(20 * time.Millisecond)

	rec := doJSON(http.MethodGet, "/v1/airlock/pending", nil, h.PendingApprovals, nil)
	var resp struct {
		Pending []string `json:"pending"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Pending) != 1 || resp.Pending[0] != "pending-1" {
		t.Fatalf("unexpected pending list: %+v", resp.Pending)
	}
	gate.Respond("pending-1", true)
}

type fakeToolExecutor struct {
	lastCall entity.ToolCallInfo
	result   *entity.CommandResult
}

func (f *fakeToolExecutor) Dispatch(ctx context.Context, workspaceID string, call entity.ToolCallInfo, allowedPaths, blockedPaths []string) *entity.CommandResult {
	f.lastCall = call
	return f.result
}

func (f *fakeToolExecutor) Definitions() []service.ToolDefinition { return nil }

func TestSkillHandler_ExecuteSkillDispatches(t *testing.T) {
	fake := &fakeToolExecutor{result: &entity.CommandResult{Success: true, Output: "ok"}}
	h := NewSkillHandler(fake, zap.NewNop())

	req := ExecuteSkillRequest{WorkspaceID: "ws-1", Skill: "filesystem", Method: "read_file", Params: map[string]interface{}{"path": "a.txt"}}
	rec := doJSON(http.MethodPost, "/v1/skills/execute", req, h.ExecuteSkill, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.lastCall.Name != "read_file" {
		t.Fatalf("expected dispatch to read_file, got %q", fake.lastCall.Name)
	}
}

func newTestVaultStore(t *testing.T) *vault.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	cipher, err := vault.NewCipher([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	store, err := vault.NewStore(db, cipher, zap.NewNop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return store
}

func TestMemoryHandler_StoreThenSearch(t *testing.T) {
	store := newTestVaultStore(t)
	retriever := vault.NewRetriever(store, nil)
	h := NewMemoryHandler(store, retriever, zap.NewNop())

	rec := doJSON(http.MethodPost, "/v1/memory", storeMemoryRequest{WorkspaceID: "ws-1", Content: "remember the milk"}, h.StoreMemory, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/memory/search?workspace_id=ws-1&q=milk", nil)
	rec2 := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec2)
	c.Request = req
	h.SearchMemory(c)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
	var resp struct {
		Results []map[string]interface{} `json:"results"`
	}
	json.Unmarshal(rec2.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
}

func TestMemoryHandler_GetMemoryStats(t *testing.T) {
	store := newTestVaultStore(t)
	h := NewMemoryHandler(store, vault.NewRetriever(store, nil), zap.NewNop())

	store.Put(context.Background(), &entity.MemoryEntry{ID: "m1", WorkspaceID: "ws-stats", Content: "a"})

	req := httptest.NewRequest(http.MethodGet, "/v1/memory/stats?workspace_id=ws-stats", nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	h.GetMemoryStats(c)

	var resp struct {
		EntryCount int64 `json:"entry_count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.EntryCount != 1 {
		t.Fatalf("expected entry_count=1, got %d", resp.EntryCount)
	}
}

func newTestProviderConfigStore(t *testing.T) *persistence.ProviderConfigStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	if err := db.AutoMigrate(&models.ProviderConfigModel{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return persistence.NewProviderConfigStore(db)
}

func TestRouterHandler_RegisterThenUnregisterPersists(t *testing.T) {
	rt := router.NewRouter(router.DefaultConfig(), zap.NewNop())
	store := newTestProviderConfigStore(t)
	h := NewRouterHandler(rt, store, zap.NewNop())

	cfg := router.ProviderConfig{ID: "p1", Type: "openai", BaseURL: "https://example.com", Models: []string{"gpt-test"}}
	rec := doJSON(http.MethodPost, "/v1/providers", cfg, h.RegisterProvider, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	persisted, err := store.FindAll(context.Background())
	if err != nil || len(persisted) != 1 || persisted[0].ID != "p1" {
		t.Fatalf("expected provider persisted, got %+v (err=%v)", persisted, err)
	}

	rec2 := doJSON(http.MethodDelete, "/v1/providers/p1", nil, h.UnregisterProvider, gin.Params{{Key: "id", Value: "p1"}})
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
	persisted, _ = store.FindAll(context.Background())
	if len(persisted) != 0 {
		t.Fatalf("expected provider removed from store, got %+v", persisted)
	}
}

func TestNodeHandler_RegisterRequiresPlatformKey(t *testing.T) {
	h := NewNodeHandler("secret-key", zap.NewNop())

	req := registerRequest{WorkspaceID: "ws-1", Hostname: "box-1"}
	rec := doJSON(http.MethodPost, "/v1/nodes/register", req, h.Register, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without platform key, got %d", rec.Code)
	}
}

func TestNodeHandler_RegisterThenHeartbeat(t *testing.T) {
	h := NewNodeHandler("", zap.NewNop())

	req := registerRequest{WorkspaceID: "ws-1", Hostname: "box-1", Skills: []string{"filesystem"}}
	rec := doJSON(http.MethodPost, "/v1/nodes/register", req, h.Register, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Success bool   `json:"success"`
		NodeID  string `json:"nodeId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.NodeID == "" {
		t.Fatalf("unexpected register response: %+v", resp)
	}

	rec2 := doJSON(http.MethodPost, "/v1/nodes/"+resp.NodeID+"/heartbeat", nil, h.Heartbeat, gin.Params{{Key: "id", Value: resp.NodeID}})
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
}
