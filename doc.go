// Package memotl provides a memoizing translation layer for live text
// pipelines such as game message windows.
//
// A Translator answers from a durable cache when it can and otherwise asks a
// local model server (Ollama, LM Studio) for a translation, stores the result
// and shares it with every concurrent caller waiting on the same text. At most
// one backend call is in flight per distinct source text; different texts
// translate in parallel. Backend failures never reach the caller: the original
// text comes back with an OutcomePassthrough tag instead.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/memotl"
//	    "github.com/ZaguanLabs/memotl/cache"
//	    "github.com/ZaguanLabs/memotl/provider"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    // Load the snapshot (empty if absent or corrupt)
//	    store := cache.Open(ctx, cache.NewFilePersister("./cache/translations.json"))
//
//	    // Resolve the backend once per configuration load
//	    backend := provider.New(memotl.BackendConfig{
//	        Service:     memotl.ServiceOllama,
//	        OllamaURL:   "http://localhost:11434",
//	        OllamaModel: "llama2",
//	    })
//
//	    t := memotl.NewTranslator(store, backend)
//	    fmt.Println(t.Translate(ctx, "オーブ", "ja", "zh-CN"))
//	}
package memotl
