package services

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/internal/cache"
	"github.com/fyerfyer/campusdoc-tutor/internal/database"
	"github.com/fyerfyer/campusdoc-tutor/internal/embedding"
	"github.com/fyerfyer/campusdoc-tutor/internal/llm"
	"github.com/fyerfyer/campusdoc-tutor/internal/repository"
	"github.com/fyerfyer/campusdoc-tutor/internal/vectordb"
	"github.com/fyerfyer/campusdoc-tutor/pkg/storage"
	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// createTestPDF 生成每页一段文本的PDF，空字符串表示空白页
func createTestPDF(t *testing.T, dir, name string, pages ...string) string {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		if text != "" {
			pdf.Cell(40, 10, text)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

// testEnv 由真实组件和模拟大模型组成的测试环境
type testEnv struct {
	index   *vectordb.EmbeddingIndex
	llm     *llm.MockClient
	rag     *llm.RAGService
	ingest  *IngestService
	qa      *QAService
	files   *FileService
	store   *storage.LocalStorage
	records repository.RecordRepository
	cache   cache.Cache
	indexAt string
	hook    *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	c, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)

	hash, err := embedding.NewHashClient(embedding.WithDimensions(128))
	require.NoError(t, err)
	embedder := embedding.NewCachedClient(hash, c, time.Hour, logger)

	indexAt := filepath.Join(dir, "vectors", "index.json")
	repo, err := vectordb.NewRepository(vectordb.Config{Type: "memory", Path: indexAt})
	require.NoError(t, err)
	index := vectordb.NewEmbeddingIndex(embedder, repo, vectordb.WithIndexLogger(logger))
	t.Cleanup(func() { _ = index.Close() })

	llmClient := llm.NewMockClient(t)
	rag := llm.NewRAG(llmClient)

	store, err := storage.NewLocalStorage(storage.LocalConfig{Path: filepath.Join(dir, "raw")})
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	records := repository.NewRecordRepository(db)

	ingest := NewIngestService(index, rag, WithLogger(logger))
	return &testEnv{
		index:  index,
		llm:    llmClient,
		rag:    rag,
		ingest: ingest,
		qa:     NewQAService(index, rag, WithQALogger(logger)),
		files: NewFileService(store, ingest, index,
			WithRecordRepository(records),
			WithEmbeddingCache(c),
			WithFileLogger(logger)),
		store:   store,
		records: records,
		cache:   c,
		indexAt: indexAt,
		hook:    hook,
	}
}
