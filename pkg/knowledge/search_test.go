package knowledge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/knowledge"
	"github.com/papercomputeco/stacks/pkg/logger"
)

// fastSchedule keeps retry tests quick while preserving the three-attempt
// shape of the default schedule.
var fastSchedule = []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}

func newSearchClient(url string) *knowledge.Client {
	client, err := knowledge.NewClient(knowledge.Config{
		URL:           url,
		RetrySchedule: fastSchedule,
	}, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return client
}

func defaultSearch(query string) knowledge.SearchRequest {
	return knowledge.SearchRequest{
		Query:          query,
		TopK:           knowledge.DefaultTopK,
		ScoreThreshold: knowledge.DefaultScoreThreshold,
	}
}

var _ = Describe("Search", func() {
	Describe("validation", func() {
		It("rejects an empty query without calling the server", func() {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch(""))

			Expect(envelope.Success).To(BeFalse())
			Expect(envelope.Error).To(Equal("Query cannot be empty"))
			Expect(envelope.Query).To(Equal(""))
			Expect(hits.Load()).To(BeZero())
		})

		It("rejects a whitespace-only query and echoes it back", func() {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("   \t  "))

			Expect(envelope.Success).To(BeFalse())
			Expect(envelope.Error).To(Equal("Query cannot be empty"))
			Expect(envelope.Query).To(Equal("   \t  "))
			Expect(hits.Load()).To(BeZero())
		})

		It("omits collection, results, and count on a validation failure", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch(""))

			payload, err := json.Marshal(envelope)
			Expect(err).NotTo(HaveOccurred())

			var got map[string]any
			Expect(json.Unmarshal(payload, &got)).To(Succeed())
			Expect(got).To(HaveKey("success"))
			Expect(got).To(HaveKey("error"))
			Expect(got).To(HaveKey("query"))
			Expect(got).NotTo(HaveKey("collection"))
			Expect(got).NotTo(HaveKey("results"))
			Expect(got).NotTo(HaveKey("count"))
		})
	})

	Describe("request shaping", func() {
		var (
			mu       sync.Mutex
			received map[string]any
			server   *httptest.Server
		)

		BeforeEach(func() {
			received = nil
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()

				Expect(r.Method).To(Equal("POST"))
				Expect(r.URL.Path).To(Equal("/api/search"))

				var body map[string]any
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				mu.Lock()
				received = body
				mu.Unlock()

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"documents": []}`))
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		lastBody := func() map[string]any {
			mu.Lock()
			defer mu.Unlock()
			return received
		}

		It("sends the query, collection, and tuning parameters", func() {
			client := newSearchClient(server.URL)
			client.Search(context.Background(), knowledge.SearchRequest{
				Query:          "how are retries paced",
				Collection:     "papers",
				TopK:           7,
				ScoreThreshold: 0.25,
			})

			body := lastBody()
			Expect(body["query"]).To(Equal("how are retries paced"))
			Expect(body["collection_name"]).To(Equal("papers"))
			Expect(body["top_k"]).To(BeNumerically("==", 7))
			Expect(body["score_threshold"]).To(BeNumerically("==", 0.25))
		})

		It("falls back to the default collection", func() {
			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("anything"))

			Expect(lastBody()["collection_name"]).To(Equal("default"))
			Expect(envelope.Collection).To(Equal("default"))
		})

		It("clamps top_k into [1, 20]", func() {
			client := newSearchClient(server.URL)
			cases := map[int]int{
				-3:  1,
				0:   1,
				1:   1,
				5:   5,
				20:  20,
				21:  20,
				100: 20,
			}
			for in, want := range cases {
				client.Search(context.Background(), knowledge.SearchRequest{
					Query:          "clamp",
					TopK:           in,
					ScoreThreshold: knowledge.DefaultScoreThreshold,
				})
				Expect(lastBody()["top_k"]).To(BeNumerically("==", want), "top_k %d should clamp to %d", in, want)
			}
		})

		It("clamps score_threshold into [0, 1]", func() {
			client := newSearchClient(server.URL)
			cases := map[float64]float64{
				-0.5: 0,
				0:    0,
				0.7:  0.7,
				1:    1,
				1.5:  1,
			}
			for in, want := range cases {
				client.Search(context.Background(), knowledge.SearchRequest{
					Query:          "clamp",
					TopK:           knowledge.DefaultTopK,
					ScoreThreshold: in,
				})
				Expect(lastBody()["score_threshold"]).To(BeNumerically("==", want), "score_threshold %v should clamp to %v", in, want)
			}
		})

		It("sends a bearer token when an API key is configured", func() {
			var authMu sync.Mutex
			var authHeader string
			authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authMu.Lock()
				authHeader = r.Header.Get("Authorization")
				authMu.Unlock()
				w.Write([]byte(`{"documents": []}`))
			}))
			defer authServer.Close()

			client, err := knowledge.NewClient(knowledge.Config{
				URL:           authServer.URL,
				APIKey:        "secret-key",
				RetrySchedule: fastSchedule,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			client.Search(context.Background(), defaultSearch("auth"))

			authMu.Lock()
			defer authMu.Unlock()
			Expect(authHeader).To(Equal("Bearer secret-key"))
		})

		It("omits the Authorization header without an API key", func() {
			var authMu sync.Mutex
			var authHeader string
			var sawRequest bool
			authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authMu.Lock()
				sawRequest = true
				authHeader = r.Header.Get("Authorization")
				authMu.Unlock()
				w.Write([]byte(`{"documents": []}`))
			}))
			defer authServer.Close()

			client := newSearchClient(authServer.URL)
			client.Search(context.Background(), defaultSearch("no auth"))

			authMu.Lock()
			defer authMu.Unlock()
			Expect(sawRequest).To(BeTrue())
			Expect(authHeader).To(BeEmpty())
		})
	})

	Describe("results", func() {
		It("returns documents untouched with a count", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"documents": [{"id": "a", "score": 0.91}, {"id": "b", "score": 0.74}]}`))
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("two docs"))

			Expect(envelope.Success).To(BeTrue())
			Expect(envelope.Results).NotTo(BeNil())
			Expect(*envelope.Results).To(HaveLen(2))
			Expect(string((*envelope.Results)[0])).To(MatchJSON(`{"id": "a", "score": 0.91}`))
			Expect(envelope.Count).NotTo(BeNil())
			Expect(*envelope.Count).To(Equal(2))
		})

		It("serializes an empty result set as results [] and count 0", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"documents": []}`))
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("nothing matches"))

			payload, err := json.Marshal(envelope)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(payload)).To(ContainSubstring(`"results":[]`))
			Expect(string(payload)).To(ContainSubstring(`"count":0`))
		})

		It("treats a missing documents key as an empty result set", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("no key"))

			Expect(envelope.Success).To(BeTrue())
			Expect(envelope.Results).NotTo(BeNil())
			Expect(*envelope.Results).To(BeEmpty())
			Expect(*envelope.Count).To(Equal(0))
		})
	})

	Describe("retry behavior", func() {
		It("succeeds after transient server errors", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= 2 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				w.Write([]byte(`{"documents": [{"id": "late"}]}`))
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("eventually works"))

			Expect(envelope.Success).To(BeTrue())
			Expect(*envelope.Count).To(Equal(1))
			Expect(attempts.Load()).To(Equal(int32(3)))
		})

		It("retries throttling responses", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) == 1 {
					http.Error(w, "slow down", http.StatusTooManyRequests)
					return
				}
				w.Write([]byte(`{"documents": []}`))
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("throttled"))

			Expect(envelope.Success).To(BeTrue())
			Expect(attempts.Load()).To(Equal(int32(2)))
		})

		It("retries request timeout responses", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) == 1 {
					http.Error(w, "timed out", http.StatusRequestTimeout)
					return
				}
				w.Write([]byte(`{"documents": []}`))
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("slow upstream"))

			Expect(envelope.Success).To(BeTrue())
			Expect(attempts.Load()).To(Equal(int32(2)))
		})

		It("gives up after exhausting all attempts", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("always down"))

			Expect(envelope.Success).To(BeFalse())
			Expect(envelope.Error).To(ContainSubstring("after 3 attempts"))
			Expect(envelope.Error).To(ContainSubstring("503"))
			Expect(attempts.Load()).To(Equal(int32(3)))
		})

		It("does not retry other client errors", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				http.Error(w, "collection not found", http.StatusNotFound)
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("missing collection"))

			Expect(envelope.Success).To(BeFalse())
			Expect(envelope.Error).To(ContainSubstring("404"))
			Expect(envelope.Error).NotTo(ContainSubstring("attempts"))
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		It("does not retry malformed response bodies", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.Write([]byte(`not json`))
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), defaultSearch("garbled"))

			Expect(envelope.Success).To(BeFalse())
			Expect(envelope.Error).To(ContainSubstring("decoding search response"))
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		It("stops waiting when the context is cancelled", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			client, err := knowledge.NewClient(knowledge.Config{
				URL:           server.URL,
				RetrySchedule: []time.Duration{time.Millisecond, time.Minute, time.Minute},
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			envelope := client.Search(ctx, defaultSearch("cancelled"))

			Expect(envelope.Success).To(BeFalse())
			Expect(envelope.Error).To(ContainSubstring("aborted"))
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
		})

		It("reports the failure envelope with the query and collection", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			}))
			defer server.Close()

			client := newSearchClient(server.URL)
			envelope := client.Search(context.Background(), knowledge.SearchRequest{
				Query:          "who failed",
				Collection:     "papers",
				TopK:           knowledge.DefaultTopK,
				ScoreThreshold: knowledge.DefaultScoreThreshold,
			})

			Expect(envelope.Success).To(BeFalse())
			Expect(envelope.Query).To(Equal("who failed"))
			Expect(envelope.Collection).To(Equal("papers"))

			payload, err := json.Marshal(envelope)
			Expect(err).NotTo(HaveOccurred())

			var got map[string]any
			Expect(json.Unmarshal(payload, &got)).To(Succeed())
			Expect(got).NotTo(HaveKey("results"))
			Expect(got).NotTo(HaveKey("count"))
		})
	})
})
