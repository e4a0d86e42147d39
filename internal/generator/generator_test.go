package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/parser"
)

func testModule() models.ModulePackage {
	return models.ModulePackage{
		Name:        "widget",
		Dir:         "/ws/mod-widget",
		ConsumerDir: "/ws/con-widget",
	}
}

func generateFrom(t *testing.T, source string) (*models.ConsumerPackage, string) {
	t.Helper()
	ext, err := parser.NewExtractor().ExtractSource("widget.go", source)
	require.NoError(t, err)

	con, err := NewGenerator().Generate(testModule(), ext)
	require.NoError(t, err)
	return con, con.Files[models.GeneratedFileName]
}

const storeSource = `package widget

import "context"

// Options configures lookups.
type Options struct {
	Limit int
}

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Get(ctx context.Context, opts Options) (string, error) { return "", nil }

func (s *StoreImpl) Put(ctx context.Context, id, value string) error { return nil }
`

func TestGenerateEmitsInterfaceAndCopiedTypes(t *testing.T) {
	con, source := generateFrom(t, storeSource)

	assert.Equal(t, "con-widget", con.Name)
	assert.Equal(t, []string{"context"}, con.ImportPaths)

	assert.True(t, strings.HasPrefix(source, GeneratedHeader), "marker must be the first line")
	assert.Contains(t, source, "package con_widget")
	assert.Contains(t, source, "type Store interface {")
	assert.Contains(t, source, "Get(ctx context.Context, opts Options) (string, error)")
	assert.Contains(t, source, "Put(ctx context.Context, id, value string) error")
	assert.Contains(t, source, "type Options struct")
	assert.NotContains(t, source, "type StoreImpl", "implementation types stay behind")
}

func TestGenerateIsDeterministic(t *testing.T) {
	_, first := generateFrom(t, storeSource)
	_, second := generateFrom(t, storeSource)
	assert.Equal(t, first, second)
}

func TestInterfacesAreOrderedLexicographically(t *testing.T) {
	_, source := generateFrom(t, `package widget

//congen::export Zeta
type ZetaImpl struct{}

func (z *ZetaImpl) Z() {}

//congen::export Alpha
type AlphaImpl struct{}

func (a *AlphaImpl) A() {}
`)

	alpha := strings.Index(source, "type Alpha interface")
	zeta := strings.Index(source, "type Zeta interface")
	require.GreaterOrEqual(t, alpha, 0)
	require.GreaterOrEqual(t, zeta, 0)
	assert.Less(t, alpha, zeta)
}

func TestMethodsAreOrderedAlphabetically(t *testing.T) {
	_, source := generateFrom(t, `package widget

//congen::export
type QueueImpl struct{}

func (q *QueueImpl) Push(v string) {}

func (q *QueueImpl) Len() int { return 0 }

func (q *QueueImpl) Drain() []string { return nil }
`)

	drain := strings.Index(source, "Drain()")
	length := strings.Index(source, "Len()")
	push := strings.Index(source, "Push(")
	assert.Less(t, drain, length)
	assert.Less(t, length, push)
}

func TestUnresolvedLocalTypeFailsGeneration(t *testing.T) {
	ext, err := parser.NewExtractor().ExtractSource("widget.go", `package widget

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Get() Missing { return Missing{} }
`)
	require.NoError(t, err)

	_, err = NewGenerator().Generate(testModule(), ext)
	require.Error(t, err)
	assert.Equal(t, errors.UnresolvedTypeErrorCode, errors.CodeOf(err))
}

func TestUnexportedLocalTypeFailsGeneration(t *testing.T) {
	ext, err := parser.NewExtractor().ExtractSource("widget.go", `package widget

type secret struct{}

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Get() secret { return secret{} }
`)
	require.NoError(t, err)

	_, err = NewGenerator().Generate(testModule(), ext)
	require.Error(t, err)
	assert.Equal(t, errors.UnresolvedTypeErrorCode, errors.CodeOf(err))
}

func TestTransitiveTypeReferencesAreCopied(t *testing.T) {
	_, source := generateFrom(t, `package widget

type Inner struct {
	N int
}

type Outer struct {
	In Inner
}

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Get() Outer { return Outer{} }
`)

	assert.Contains(t, source, "type Outer struct")
	assert.Contains(t, source, "type Inner struct")
}

func TestGenericLocalTypeIsCopied(t *testing.T) {
	_, source := generateFrom(t, `package widget

type Box[T any] struct {
	V T
}

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Latest() Box[int] { return Box[int]{} }
`)

	assert.Contains(t, source, "type Box[T any] struct")
	assert.Contains(t, source, "Latest() Box[int]")
}

func TestArrayLengthConstantIsCopied(t *testing.T) {
	_, source := generateFrom(t, `package widget

const KeySize = 32

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Key() [KeySize]byte { return [KeySize]byte{} }
`)

	assert.Contains(t, source, "const KeySize = 32")
	assert.Contains(t, source, "Key() [KeySize]byte")
}

func TestUnexportedArrayLengthConstantFailsGeneration(t *testing.T) {
	ext, err := parser.NewExtractor().ExtractSource("widget.go", `package widget

const keySize = 32

//congen::export
type StoreImpl struct{}

func (s *StoreImpl) Key() [keySize]byte { return [keySize]byte{} }
`)
	require.NoError(t, err)

	_, err = NewGenerator().Generate(testModule(), ext)
	require.Error(t, err)
	assert.Equal(t, errors.UnresolvedTypeErrorCode, errors.CodeOf(err))
}

func TestGenericInterfaceCarriesTypeParams(t *testing.T) {
	_, source := generateFrom(t, `package widget

//congen::export
type PoolImpl[T any] struct{}

func (p *PoolImpl[T]) Take() (T, bool) { var zero T; return zero, false }
`)

	assert.Contains(t, source, "type Pool[T any] interface {")
	assert.Contains(t, source, "Take() (T, bool)")
}

func TestFingerprintIgnoresCosmeticEdits(t *testing.T) {
	before, err := parser.NewExtractor().ExtractSource("widget.go", storeSource)
	require.NoError(t, err)
	after, err := parser.NewExtractor().ExtractSource("widget.go",
		strings.Replace(storeSource, "// Options configures lookups.", "// Options tunes lookups.\n// Extra commentary.", 1))
	require.NoError(t, err)

	assert.Equal(t, Fingerprint(before.Blocks), Fingerprint(after.Blocks))
}

func TestFingerprintSeesSignatureChanges(t *testing.T) {
	before, err := parser.NewExtractor().ExtractSource("widget.go", storeSource)
	require.NoError(t, err)
	after, err := parser.NewExtractor().ExtractSource("widget.go",
		strings.Replace(storeSource, "id, value string", "id string, value []byte", 1))
	require.NoError(t, err)

	assert.NotEqual(t, Fingerprint(before.Blocks), Fingerprint(after.Blocks))
}
