package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

func TestPHPUsedClasses(t *testing.T) {
	src := []byte(`<?php
namespace App\Http;

use App\Models\User;
use Psr\Log\LoggerInterface as Log;
use App\Events\{OrderPlaced, OrderShipped};

#[Route('/orders')]
class OrderController extends Controller
{
    private Log $log;

    public function show(Request $request, int $id): Response
    {
        try {
            $user = new User();
            $order = \App\Models\Order::find($id);
            if ($order instanceof Models\Draft) {
                return Cache::remember($id);
            }
            event(new OrderPlaced($order));
            return self::render($order);
        } catch (NotFoundException $e) {
            throw new \RuntimeException('missing');
        }
    }
}
`)

	symbols, err := NewPHPExtractor().Extract(src)
	require.NoError(t, err)

	for _, want := range []string{
		"App\\Models\\User",
		"Psr\\Log\\LoggerInterface",
		"App\\Events\\OrderPlaced",
		"App\\Events\\OrderShipped",
		"Route",
		"Request",
		"Response",
		"App\\Models\\Order",
		"Models\\Draft",
		"Cache",
		"NotFoundException",
		"RuntimeException",
	} {
		assert.Contains(t, symbols, want)
	}
	assert.NotContains(t, symbols, "self")
	assert.NotContains(t, symbols, "Log", "aliases resolve to the imported name")
	assert.IsIncreasing(t, symbols)
}

func TestGoImports(t *testing.T) {
	src := []byte(`package demo

import (
	"fmt"
	str "strings"

	"go.uber.org/zap"
)

import "os"

func main() { fmt.Println(str.ToUpper(os.Args[0])); _ = zap.NewNop() }
`)

	imports, err := NewGoExtractor().Extract(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"fmt", "go.uber.org/zap", "os", "strings"}, imports)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(nil)

	assert.True(t, registry.Supports("src/Foo.php"))
	assert.True(t, registry.Supports("main.GO"))
	assert.False(t, registry.Supports("notes.txt"))

	result := registry.UsedSymbols("notes.txt", []byte("hello"))
	assert.False(t, result.IsOk())
	assert.True(t, fserrors.Is(result.Err(), fserrors.ErrorTypeInvalidInput))

	result = registry.UsedSymbols("main.go", []byte("package main\nimport \"fmt\"\n"))
	require.True(t, result.IsOk())
	symbols, err := result.Unpack()
	require.NoError(t, err)
	assert.Equal(t, []string{"fmt"}, symbols)
}

func TestRegistryConcurrentUse(t *testing.T) {
	registry := NewRegistry(nil)
	src := []byte("<?php\nuse A\\B;\nnew B();\n")

	done := make(chan []string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			symbols, _ := registry.UsedSymbols("x.php", src).Unpack()
			done <- symbols
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, []string{"A\\B"}, <-done)
	}
}
