package browsecmder

import (
	"encoding/json"

	bubbletea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/knowledge"
)

func pressKey(m browseModel, k string) (browseModel, bubbletea.Cmd) {
	var msg bubbletea.KeyMsg
	switch k {
	case "enter":
		msg = bubbletea.KeyMsg{Type: bubbletea.KeyEnter}
	case "esc":
		msg = bubbletea.KeyMsg{Type: bubbletea.KeyEscape}
	case "ctrl+c":
		msg = bubbletea.KeyMsg{Type: bubbletea.KeyCtrlC}
	default:
		msg = bubbletea.KeyMsg{Type: bubbletea.KeyRunes, Runes: []rune(k)}
	}

	updated, cmd := m.Update(msg)
	return updated.(browseModel), cmd
}

func testModel(collections ...string) browseModel {
	entries := make([]collectionEntry, 0, len(collections))
	for _, name := range collections {
		entries = append(entries, collectionEntry{Name: name})
	}
	return newBrowseModel(nil, browseOptions{TopK: 5, ScoreThreshold: 0.7}, entries)
}

var _ = Describe("browseModel", func() {
	Describe("collection navigation", func() {
		It("should start on the collections view", func() {
			m := testModel("default", "docs")

			Expect(m.view).To(Equal(viewCollections))
			Expect(m.collectionCursor).To(Equal(0))
		})

		It("should move the cursor with j and k and clamp at the ends", func() {
			m := testModel("default", "docs", "wiki")

			m, _ = pressKey(m, "j")
			Expect(m.collectionCursor).To(Equal(1))

			m, _ = pressKey(m, "j")
			m, _ = pressKey(m, "j")
			Expect(m.collectionCursor).To(Equal(2))

			m, _ = pressKey(m, "k")
			m, _ = pressKey(m, "k")
			m, _ = pressKey(m, "k")
			Expect(m.collectionCursor).To(Equal(0))
		})

		It("should drill into the selected collection", func() {
			m := testModel("default", "docs")

			m, _ = pressKey(m, "j")
			m, _ = pressKey(m, "enter")

			Expect(m.view).To(Equal(viewQuery))
			Expect(m.collection).To(Equal("docs"))
			Expect(m.input.Focused()).To(BeTrue())
		})

		It("should quit on q", func() {
			m := testModel("default")

			_, cmd := pressKey(m, "q")

			Expect(cmd).NotTo(BeNil())
			Expect(cmd()).To(Equal(bubbletea.QuitMsg{}))
		})

		It("should request a refresh on r", func() {
			m := testModel("default")

			m, cmd := pressKey(m, "r")

			Expect(cmd).NotTo(BeNil())
			Expect(m.status).To(ContainSubstring("refreshing"))
		})

		It("should swap in refreshed collections and clamp the cursor", func() {
			m := testModel("default", "docs", "wiki")
			m, _ = pressKey(m, "j")
			m, _ = pressKey(m, "j")

			updated, _ := m.Update(collectionsLoadedMsg{collections: []collectionEntry{{Name: "default"}}})
			m = updated.(browseModel)

			Expect(m.collections).To(HaveLen(1))
			Expect(m.collectionCursor).To(Equal(0))
		})

		It("should track terminal resizes", func() {
			m := testModel("default")

			updated, _ := m.Update(bubbletea.WindowSizeMsg{Width: 120, Height: 40})
			m = updated.(browseModel)

			Expect(m.width).To(Equal(120))
			Expect(m.height).To(Equal(40))
		})
	})

	Describe("query view", func() {
		var m browseModel

		BeforeEach(func() {
			m = testModel("default", "docs")
			m, _ = pressKey(m, "enter")
			Expect(m.view).To(Equal(viewQuery))
		})

		It("should type into the input instead of navigating", func() {
			m, _ = pressKey(m, "q")
			m, _ = pressKey(m, "j")

			Expect(m.view).To(Equal(viewQuery))
			Expect(m.input.Value()).To(Equal("qj"))
		})

		It("should refuse a blank query", func() {
			m, cmd := pressKey(m, "enter")

			Expect(cmd).To(BeNil())
			Expect(m.searching).To(BeFalse())
			Expect(m.status).NotTo(BeEmpty())
		})

		It("should start a search on enter", func() {
			m.input.SetValue("  release process  ")

			m, cmd := pressKey(m, "enter")

			Expect(cmd).NotTo(BeNil())
			Expect(m.searching).To(BeTrue())
			Expect(m.lastQuery).To(Equal("release process"))
		})

		It("should return to the collections view on esc", func() {
			m, _ = pressKey(m, "esc")

			Expect(m.view).To(Equal(viewCollections))
			Expect(m.input.Focused()).To(BeFalse())
		})

		It("should still quit on ctrl+c", func() {
			_, cmd := pressKey(m, "ctrl+c")

			Expect(cmd).NotTo(BeNil())
			Expect(cmd()).To(Equal(bubbletea.QuitMsg{}))
		})
	})

	Describe("search results", func() {
		searchResults := func(docs ...string) knowledge.SearchEnvelope {
			raws := make([]json.RawMessage, 0, len(docs))
			for _, doc := range docs {
				raws = append(raws, json.RawMessage(doc))
			}
			count := len(raws)
			return knowledge.SearchEnvelope{Success: true, Results: &raws, Count: &count}
		}

		var m browseModel

		BeforeEach(func() {
			m = testModel("default")
			m, _ = pressKey(m, "enter")
			m.input.SetValue("deploys")
			m, _ = pressKey(m, "enter")
		})

		It("should show the results view after a successful search", func() {
			envelope := searchResults(
				`{"id": "doc-1", "score": 0.91, "text": "Deploys run from main."}`,
				`{"id": "doc-2", "score": 0.84, "text": "Rollbacks use the previous tag."}`,
			)

			updated, _ := m.Update(searchDoneMsg{envelope: envelope})
			m = updated.(browseModel)

			Expect(m.view).To(Equal(viewResults))
			Expect(m.searching).To(BeFalse())
			Expect(m.results).To(HaveLen(2))
			Expect(m.results[0].ID).To(Equal("doc-1"))
			Expect(*m.results[0].Score).To(BeNumerically("~", 0.91, 0.001))
		})

		It("should surface a failed search without leaving the query view", func() {
			envelope := knowledge.SearchEnvelope{Success: false, Error: "Search failed: 500"}

			updated, _ := m.Update(searchDoneMsg{envelope: envelope})
			m = updated.(browseModel)

			Expect(m.view).To(Equal(viewQuery))
			Expect(m.status).To(ContainSubstring("500"))
		})

		It("should drill into a result and back out", func() {
			updated, _ := m.Update(searchDoneMsg{envelope: searchResults(
				`{"id": "doc-1", "text": "first"}`,
				`{"id": "doc-2", "text": "second"}`,
			)})
			m = updated.(browseModel)

			m, _ = pressKey(m, "j")
			m, _ = pressKey(m, "enter")
			Expect(m.view).To(Equal(viewDetail))
			Expect(m.detailIndex).To(Equal(1))

			m, _ = pressKey(m, "esc")
			Expect(m.view).To(Equal(viewResults))

			m, _ = pressKey(m, "esc")
			Expect(m.view).To(Equal(viewQuery))
			Expect(m.input.Focused()).To(BeTrue())
		})
	})

	Describe("decoding payloads", func() {
		It("should decode collection name strings", func() {
			raws := []json.RawMessage{
				json.RawMessage(`"default"`),
				json.RawMessage(`"docs"`),
			}

			entries := decodeCollections(&raws)

			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Name).To(Equal("default"))
			Expect(entries[1].Name).To(Equal("docs"))
		})

		It("should decode collection objects with counts", func() {
			raws := []json.RawMessage{
				json.RawMessage(`{"name": "docs", "count": 42}`),
			}

			entries := decodeCollections(&raws)

			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name).To(Equal("docs"))
			Expect(*entries[0].Count).To(Equal(42))
		})

		It("should keep nil collections empty", func() {
			Expect(decodeCollections(nil)).To(BeEmpty())
		})

		It("should fall back to the content field for result text", func() {
			raws := []json.RawMessage{
				json.RawMessage(`{"id": "doc-1", "content": "stored under content"}`),
			}

			entries := decodeResults(&raws)

			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Text).To(Equal("stored under content"))
		})

		It("should keep the raw payload for unrecognized results", func() {
			raws := []json.RawMessage{
				json.RawMessage(`[1, 2, 3]`),
			}

			entries := decodeResults(&raws)

			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ID).To(BeEmpty())
			Expect(string(entries[0].Raw)).To(Equal(`[1, 2, 3]`))
		})
	})

	Describe("layout helpers", func() {
		It("should window long lists around the cursor", func() {
			start, end := visibleRange(50, 25, 10)

			Expect(end - start).To(Equal(10))
			Expect(25).To(BeNumerically(">=", start))
			Expect(25).To(BeNumerically("<", end))
		})

		It("should show short lists whole", func() {
			start, end := visibleRange(3, 1, 10)

			Expect(start).To(Equal(0))
			Expect(end).To(Equal(3))
		})

		It("should truncate long text with an ellipsis", func() {
			Expect(truncateText("abcdefghij", 8)).To(Equal("abcde..."))
			Expect(truncateText("short", 8)).To(Equal("short"))
		})

		It("should collapse whitespace into one line", func() {
			Expect(oneLine("a\nb\t c")).To(Equal("a b c"))
		})

		It("should wrap text at the given width", func() {
			lines := wrapText("one two three four five", 9)

			Expect(len(lines)).To(BeNumerically(">", 1))
			for _, line := range lines {
				Expect(len(line)).To(BeNumerically("<=", 9))
			}
		})
	})
})
