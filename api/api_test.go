package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/api/handler"
	"github.com/fyerfyer/campusdoc-tutor/api/middleware"
	"github.com/fyerfyer/campusdoc-tutor/api/model"
	"github.com/fyerfyer/campusdoc-tutor/internal/cache"
	"github.com/fyerfyer/campusdoc-tutor/internal/database"
	"github.com/fyerfyer/campusdoc-tutor/internal/embedding"
	"github.com/fyerfyer/campusdoc-tutor/internal/llm"
	"github.com/fyerfyer/campusdoc-tutor/internal/repository"
	"github.com/fyerfyer/campusdoc-tutor/internal/services"
	"github.com/fyerfyer/campusdoc-tutor/internal/vectordb"
	"github.com/fyerfyer/campusdoc-tutor/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// 测试环境配置
type testEnv struct {
	Router    *gin.Engine
	LLMClient *llm.MockClient
	Index     *vectordb.EmbeddingIndex
	Storage   *storage.LocalStorage
}

// 创建测试环境：哈希向量、内存索引、本地存储和内存sqlite，大模型使用Mock
func setupTestEnv(t *testing.T, opts ...RouterOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	cacheService, err := cache.NewCache(cache.Config{
		Type:            "memory",
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute,
	})
	require.NoError(t, err)

	hash, err := embedding.NewHashClient(embedding.WithDimensions(128))
	require.NoError(t, err)
	embedder := embedding.NewCachedClient(hash, cacheService, time.Hour, nil)

	repo, err := vectordb.NewRepository(vectordb.Config{
		Type: "memory",
		Path: filepath.Join(dir, "vectors.json"),
	})
	require.NoError(t, err)
	index := vectordb.NewEmbeddingIndex(embedder, repo)
	t.Cleanup(func() { _ = index.Close() })

	fileStorage, err := storage.NewLocalStorage(storage.LocalConfig{Path: filepath.Join(dir, "raw")})
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:api_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	mockLLM := llm.NewMockClient(t)
	rag := llm.NewRAG(mockLLM)

	ingest := services.NewIngestService(index, rag)
	qa := services.NewQAService(index, rag)
	files := services.NewFileService(fileStorage, ingest, index,
		services.WithRecordRepository(repository.NewRecordRepository(db)),
		services.WithEmbeddingCache(cacheService),
	)

	router := SetupRouter(
		handler.NewDocumentHandler(files),
		handler.NewQAHandler(qa),
		handler.NewSystemHandler(files),
		opts...,
	)
	return &testEnv{
		Router:    router,
		LLMClient: mockLLM,
		Index:     index,
		Storage:   fileStorage,
	}
}

// createTestPDF 生成每页一段文本的PDF内容
func createTestPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		pdf.Cell(40, 10, text)
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

// uploadRequest 构造multipart上传请求
func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(method, path string, payload interface{}) *http.Request {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decode 解析通用响应，并把data解析到out中
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) model.Response {
	t.Helper()
	var raw struct {
		model.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Response
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) expectSuggestions(text string) {
	e.LLMClient.EXPECT().Generate(mock.Anything, mock.Anything, mock.Anything).
		Return(&llm.Response{Text: text}, nil)
}

// TestIngestPDF 上传PDF返回文本块数量和推荐问题
func TestIngestPDF(t *testing.T) {
	env := setupTestEnv(t)
	env.expectSuggestions("What is a stack?\nWhat is a queue?\n")

	w := env.do(uploadRequest(t, "ds.pdf", createTestPDF(t, "A stack is LIFO.", "A queue is FIFO.")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data model.IngestResponse
	resp := decode(t, w, &data)
	assert.Equal(t, 0, resp.Code)
	assert.NotEmpty(t, resp.TraceID)
	assert.Equal(t, "ds.pdf", data.FileName)
	assert.Equal(t, "indexed", data.Status)
	assert.Equal(t, 2, data.ChunksCount)
	assert.Equal(t, []string{"What is a stack?", "What is a queue?"}, data.Suggestions)
}

// TestIngestRejectsNonPDF 非PDF文件在边界处被拒绝，不进入入库流程
func TestIngestRejectsNonPDF(t *testing.T) {
	env := setupTestEnv(t)

	for _, name := range []string{"notes.txt", "slides.pptx", "pdf"} {
		w := env.do(uploadRequest(t, name, []byte("hello")))
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		resp := decode(t, w, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Message, "Only PDF files are supported.")
	}

	files, err := env.Storage.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, files)
	env.LLMClient.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

// TestIngestUppercaseExtension 扩展名大小写不敏感
func TestIngestUppercaseExtension(t *testing.T) {
	env := setupTestEnv(t)
	env.expectSuggestions("Q?")

	w := env.do(uploadRequest(t, "SCAN.PDF", createTestPDF(t, "Uppercase extension.")))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// TestIngestMissingFile 缺少file字段返回400
func TestIngestMissingFile(t *testing.T) {
	env := setupTestEnv(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("other", "x"))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestIngestCorruptPDF 无法解析的PDF返回500，并写入failed记录
func TestIngestCorruptPDF(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(uploadRequest(t, "broken.pdf", []byte("this is not a pdf")))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w, nil)
	assert.True(t, strings.HasPrefix(resp.Message, "Ingestion failed: "), resp.Message)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/records?status=failed", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var records model.RecordListResponse
	decode(t, w, &records)
	require.Len(t, records.Records, 1)
	assert.Equal(t, "broken.pdf", records.Records[0].FileName)
	assert.Equal(t, "load", records.Records[0].FailedStage)
}

// TestAskWithCitations 问答返回模型回答和引用
func TestAskWithCitations(t *testing.T) {
	env := setupTestEnv(t)
	env.expectSuggestions("Where is Paris?")

	w := env.do(uploadRequest(t, "geo.pdf", createTestPDF(t, "Intro page.", "The capital of France is Paris.")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env.LLMClient.EXPECT().Chat(mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, msgs []llm.Message, _ ...llm.CallOption) (*llm.Response, error) {
			require.Len(t, msgs, 2)
			assert.Contains(t, msgs[0].Content, "Paris")
			return &llm.Response{Text: "Paris"}, nil
		}).Once()

	w = env.do(jsonRequest(http.MethodPost, "/api/ask", model.AskRequest{Question: "What is the capital of France?"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data model.AskResponse
	decode(t, w, &data)
	assert.Equal(t, "Paris", data.Answer)
	require.NotEmpty(t, data.Citations)
	for _, c := range data.Citations {
		assert.Equal(t, "geo.pdf", c.Source)
		assert.LessOrEqual(t, len([]rune(c.Content)), 153)
		assert.GreaterOrEqual(t, c.Page, 1)
	}
}

// TestAskEmptyIndex 空索引时返回固定回复且不调用大模型
func TestAskEmptyIndex(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(jsonRequest(http.MethodPost, "/api/ask", model.AskRequest{Question: "anything?"}))
	require.Equal(t, http.StatusOK, w.Code)

	var data model.AskResponse
	decode(t, w, &data)
	assert.Equal(t, llm.NotFoundMessage, data.Answer)
	assert.NotNil(t, data.Citations)
	assert.Empty(t, data.Citations)
	env.LLMClient.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

// TestAskValidation 缺少问题或问题为空白时返回400
func TestAskValidation(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(jsonRequest(http.MethodPost, "/api/ask", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, "invalid request body: question is required", resp.Message)

	w = env.do(jsonRequest(http.MethodPost, "/api/ask", model.AskRequest{Question: "   "}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestAskRateLimited 令牌耗尽后问答接口返回429，其他接口不受影响
func TestAskRateLimited(t *testing.T) {
	env := setupTestEnv(t, WithRateLimit(0.001, 1))

	w := env.do(jsonRequest(http.MethodPost, "/api/ask", model.AskRequest{Question: "first?"}))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(jsonRequest(http.MethodPost, "/api/ask", model.AskRequest{Question: "second?"}))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.NotEmpty(t, resp.TraceID)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestAskGenerationFailure 模型调用失败时返回500
func TestAskGenerationFailure(t *testing.T) {
	env := setupTestEnv(t)
	env.expectSuggestions("Q?")
	w := env.do(uploadRequest(t, "a.pdf", createTestPDF(t, "some content")))
	require.Equal(t, http.StatusOK, w.Code)

	env.LLMClient.EXPECT().Chat(mock.Anything, mock.Anything, mock.Anything).
		Return(nil, llm.NewLLMError(llm.ErrCodeServerError, "model offline"))

	w = env.do(jsonRequest(http.MethodPost, "/api/ask", model.AskRequest{Question: "content?"}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w, nil)
	assert.Contains(t, resp.Message, "model offline")
}

// TestListFilesAndRawFile 文件列表返回可读大小和下载地址
func TestListFilesAndRawFile(t *testing.T) {
	env := setupTestEnv(t)
	env.expectSuggestions("Q?")

	content := createTestPDF(t, "hello files")
	w := env.do(uploadRequest(t, "my notes.pdf", content))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list model.FileListResponse
	decode(t, w, &list)
	require.Len(t, list.Files, 1)
	assert.Equal(t, "my notes.pdf", list.Files[0].Name)
	assert.Equal(t, model.HumanSize(int64(len(content))), list.Files[0].Size)
	assert.Equal(t, "/raw_files/my%20notes.pdf", list.Files[0].URL)

	w = env.do(httptest.NewRequest(http.MethodGet, list.Files[0].URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, content, w.Body.Bytes())

	w = env.do(httptest.NewRequest(http.MethodGet, "/raw_files/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestResetClearsEverything 重置后索引、文件和记录均为空
func TestResetClearsEverything(t *testing.T) {
	env := setupTestEnv(t)
	env.expectSuggestions("Q?")
	w := env.do(uploadRequest(t, "a.pdf", createTestPDF(t, "first")))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	var health model.HealthResponse
	decode(t, w, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Vectors)

	w = env.do(httptest.NewRequest(http.MethodDelete, "/api/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var reset model.ResetResponse
	decode(t, w, &reset)
	assert.Equal(t, "success", reset.Status)
	assert.Equal(t, "Database and files have been reset.", reset.Message)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	decode(t, w, &health)
	assert.Equal(t, 0, health.Vectors)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/files", nil))
	var list model.FileListResponse
	decode(t, w, &list)
	assert.Empty(t, list.Files)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/records", nil))
	var records model.RecordListResponse
	decode(t, w, &records)
	assert.Equal(t, 0, records.Total)
}

// TestRecordsPaginationAndValidation 入库记录分页和状态校验
func TestRecordsPaginationAndValidation(t *testing.T) {
	env := setupTestEnv(t)
	env.expectSuggestions("Q?")
	for i := 0; i < 3; i++ {
		w := env.do(uploadRequest(t, fmt.Sprintf("doc%d.pdf", i), createTestPDF(t, fmt.Sprintf("document number %d", i))))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/records?page=2&page_size=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var records model.RecordListResponse
	decode(t, w, &records)
	assert.Equal(t, 3, records.Total)
	assert.Equal(t, 2, records.Page)
	assert.Len(t, records.Records, 1)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/records?status=pending", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w, nil)
	assert.Contains(t, resp.Message, "status must be one of [indexed failed]")
}

// TestTraceIDPropagation 请求头中的追踪ID原样返回
func TestTraceIDPropagation(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(middleware.TraceIDHeader, "trace-123")
	w := env.do(req)
	assert.Equal(t, "trace-123", w.Header().Get(middleware.TraceIDHeader))
	resp := decode(t, w, nil)
	assert.Equal(t, "trace-123", resp.TraceID)
}

// TestPanicRecovery 处理器panic时返回500
func TestPanicRecovery(t *testing.T) {
	env := setupTestEnv(t)
	env.Router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := env.do(httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", model.HumanSize(512))
	assert.Equal(t, "1.5 KB", model.HumanSize(1536))
	assert.Equal(t, "2.0 MB", model.HumanSize(2*1024*1024))
}

// TestCorsPreflight OPTIONS请求直接返回204
func TestCorsPreflight(t *testing.T) {
	env := setupTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodOptions, "/api/ask", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
