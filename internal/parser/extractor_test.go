package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congen/internal/errors"
	"congen/internal/models"
)

func extractOne(t *testing.T, source string) *Extraction {
	t.Helper()
	ext, err := NewExtractor().ExtractSource("widget.go", source)
	require.NoError(t, err)
	return ext
}

func TestExtractExportedMethods(t *testing.T) {
	ext := extractOne(t, `package widget

import "context"

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Get(ctx context.Context, id string) (string, error) { return "", nil }

func (s *StoreImpl) Put(ctx context.Context, id, value string) error { return nil }

// unexported methods never cross the boundary
func (s *StoreImpl) reset() {}

// functions are not methods
func Get(id string) string { return id }
`)

	require.Len(t, ext.Blocks, 1)
	block := ext.Blocks[0]

	assert.Equal(t, "Store", block.InterfaceName)
	assert.Equal(t, "StoreImpl", block.StructName)
	require.Len(t, block.Methods, 2)
	assert.Equal(t, "Get", block.Methods[0].Name)
	assert.Equal(t, "Put", block.Methods[1].Name)
	assert.Equal(t, models.ReceiverPointer, block.Methods[0].Receiver)
	assert.Equal(t, "Get(ctx context.Context, id string) (string, error)", block.Methods[0].Declaration())
	assert.Equal(t, "Put(ctx context.Context, id, value string) error", block.Methods[1].Declaration())
	assert.Equal(t, []models.ImportRef{{Qualifier: "context", Path: "context"}}, block.ImportRefs)
}

func TestExtractExplicitInterfaceName(t *testing.T) {
	ext := extractOne(t, `package widget

//congen::export Registry
type memoryRegistry struct{}

func (m memoryRegistry) Count() int { return 0 }
`)

	require.Len(t, ext.Blocks, 1)
	assert.Equal(t, "Registry", ext.Blocks[0].InterfaceName)
	assert.Equal(t, models.ReceiverValue, ext.Blocks[0].Methods[0].Receiver)
}

func TestInferredNameWithoutImplSuffix(t *testing.T) {
	ext := extractOne(t, `package widget

//congen::export
type Cache struct{}

func (c *Cache) Evict(key string) {}
`)

	require.Len(t, ext.Blocks, 1)
	assert.Equal(t, "CacheInterface", ext.Blocks[0].InterfaceName)
}

func TestLocalTypeReferencesAreCollected(t *testing.T) {
	ext := extractOne(t, `package widget

// Options configures lookups.
type Options struct {
	Limit int
}

type Result struct {
	IDs []string
}

//congen::export
type FinderImpl struct{}

func (f *FinderImpl) Find(opts Options) (*Result, error) { return nil, nil }
`)

	require.Len(t, ext.Blocks, 1)
	assert.Equal(t, []string{"Options", "Result"}, ext.Blocks[0].LocalRefs)

	require.Contains(t, ext.Types, "Options")
	decl := ext.Types["Options"]
	assert.True(t, decl.Exported)
	assert.Contains(t, decl.Source, "type Options struct")
	assert.Contains(t, decl.Source, "Limit int")
}

func TestGenericStructCapturesTypeParams(t *testing.T) {
	ext := extractOne(t, `package widget

//congen::export
type PoolImpl[T any] struct{}

func (p *PoolImpl[T]) Take() (T, bool) { var zero T; return zero, false }
`)

	require.Len(t, ext.Blocks, 1)
	block := ext.Blocks[0]
	assert.Equal(t, "[T any]", block.TypeParams)
	assert.Equal(t, []string{"T"}, block.TypeParamNames)
	// The bound parameter is not a package-level reference.
	assert.Empty(t, block.LocalRefs)
}

func TestGenericLocalTypeExcludesOwnParams(t *testing.T) {
	ext := extractOne(t, `package widget

type Box[T any] struct {
	V T
}

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Latest() Box[int] { return Box[int]{} }
`)

	require.Len(t, ext.Blocks, 1)
	assert.Equal(t, []string{"Box"}, ext.Blocks[0].LocalRefs)

	require.Contains(t, ext.Types, "Box")
	decl := ext.Types["Box"]
	assert.Equal(t, []string{"T"}, decl.TypeParamNames)
	// The declaration's own parameter must never surface as a reference.
	assert.Empty(t, decl.LocalRefs)
}

func TestArrayLengthIsAConstantReference(t *testing.T) {
	ext := extractOne(t, `package widget

const KeySize = 32

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Key() [KeySize]byte { return [KeySize]byte{} }
`)

	require.Len(t, ext.Blocks, 1)
	block := ext.Blocks[0]
	assert.Empty(t, block.LocalRefs)
	assert.Equal(t, []string{"KeySize"}, block.ConstRefs)

	require.Contains(t, ext.Consts, "KeySize")
	decl := ext.Consts["KeySize"]
	assert.True(t, decl.Exported)
	assert.Equal(t, "const KeySize = 32", decl.Source)
}

func TestIotaContinuationHasNoStandaloneSource(t *testing.T) {
	ext := extractOne(t, `package widget

const (
	StateIdle = iota
	StateBusy
)
`)

	require.Contains(t, ext.Consts, "StateBusy")
	assert.Empty(t, ext.Consts["StateBusy"].Source)
	assert.Equal(t, "const StateIdle = iota", ext.Consts["StateIdle"].Source)
}

func TestMisplacedAnnotationOnFunction(t *testing.T) {
	_, err := NewExtractor().ExtractSource("widget.go", `package widget

//congen::export
func Helper() {}
`)
	require.Error(t, err)
	assert.Equal(t, errors.MisplacedAnnotationErrorCode, errors.CodeOf(err))
}

func TestMisplacedAnnotationOnNonStructType(t *testing.T) {
	_, err := NewExtractor().ExtractSource("widget.go", `package widget

//congen::export
type Alias = int
`)
	require.Error(t, err)
	assert.Equal(t, errors.MisplacedAnnotationErrorCode, errors.CodeOf(err))

	_, err = NewExtractor().ExtractSource("widget.go", `package widget

//congen::export
var count int
`)
	require.Error(t, err)
	assert.Equal(t, errors.MisplacedAnnotationErrorCode, errors.CodeOf(err))
}

func TestConflictingInterfaceDeclarations(t *testing.T) {
	_, err := NewExtractor().ExtractSource("widget.go", `package widget

//congen::export Store
type FileStore struct{}

func (f *FileStore) Get(id string) string { return "" }

//congen::export Store
type MemStore struct{}

func (m *MemStore) Get(id int) string { return "" }
`)
	require.Error(t, err)
	assert.Equal(t, errors.ConflictingAnnotationErrorCode, errors.CodeOf(err))
}

func TestMatchingDuplicateDeclarationsAreAccepted(t *testing.T) {
	ext := extractOne(t, `package widget

//congen::export Store
type FileStore struct{}

func (f *FileStore) Get(id string) string { return "" }

//congen::export Store
type MemStore struct{}

func (m *MemStore) Get(id string) string { return "" }
`)
	assert.Len(t, ext.Blocks, 2)
}

func TestSyntaxErrorIsAParseError(t *testing.T) {
	_, err := NewExtractor().ExtractSource("widget.go", "package widget\n\nfunc broken( {")
	require.Error(t, err)
	assert.Equal(t, errors.ParseErrorCode, errors.CodeOf(err))
}

func TestAliasedImportQualifier(t *testing.T) {
	ext := extractOne(t, `package widget

import tm "time"

//congen::export
type ClockImpl struct{}

func (c *ClockImpl) Now() tm.Time { return tm.Time{} }
`)

	require.Len(t, ext.Blocks, 1)
	assert.Equal(t, []models.ImportRef{{Qualifier: "tm", Path: "time"}}, ext.Blocks[0].ImportRefs)
	assert.Equal(t, "Now() tm.Time", ext.Blocks[0].Methods[0].Declaration())
}

func TestVariadicAndFuncTypesPassThroughVerbatim(t *testing.T) {
	ext := extractOne(t, `package widget

//congen::export
type RunnerImpl struct{}

func (r *RunnerImpl) Run(fn func(int) error, args ...string) (map[string][]byte, error) {
	return nil, nil
}
`)

	require.Len(t, ext.Blocks, 1)
	assert.Equal(t,
		"Run(fn func(int) error, args ...string) (map[string][]byte, error)",
		ext.Blocks[0].Methods[0].Declaration())
}
