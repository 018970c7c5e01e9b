// Benchmark tool for testing Kanuni against labeled procurement documents.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/labeled.csv -url http://localhost:8080
//   go run cmd/benchmark/main.go -synthetic 1000 -url http://localhost:8080
//
// This tool:
//   1. Reads labeled document data (CSV columns: id,label,text; label 1 = risky)
//      or generates a synthetic labeled corpus
//   2. Sends each document to Kanuni for analysis
//   3. Compares Kanuni's verdict (HIGH/CRITICAL vs MEDIUM/LOW) with the labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledDocument is one benchmark input.
type LabeledDocument struct {
	ID      string
	IsRisky bool
	Text    string
}

// AnalyzeRequest is the Kanuni API request format.
type AnalyzeRequest struct {
	FileName string `json:"fileName,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Text     string `json:"text"`
}

// AnalyzeResponse is the subset of the Kanuni API response the
// benchmark needs.
type AnalyzeResponse struct {
	AssessmentID string `json:"assessmentId"`
	RiskScore    int    `json:"riskScore"`
	RiskLevel    string `json:"riskLevel"`
	TopConcern   string `json:"topConcern"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Risky detected as HIGH/CRITICAL
	FalsePositives int64 // Clean detected as HIGH/CRITICAL
	TrueNegatives  int64 // Clean detected as MEDIUM/LOW
	FalseNegatives int64 // Risky detected as MEDIUM/LOW (missed!)

	TotalProcessed int64
	TotalRisky     int64
	TotalClean     int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled document CSV (id,label,text)")
	synthetic := flag.Int("synthetic", 0, "Generate N synthetic labeled documents instead of reading a CSV")
	baseURL := flag.String("url", "http://localhost:8080", "Kanuni base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum documents to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each document result")
	flag.Parse()

	if *csvPath == "" && *synthetic == 0 {
		fmt.Println("Usage: benchmark -csv /path/to/labeled.csv [-url http://localhost:8080]")
		fmt.Println("       benchmark -synthetic 1000 [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║       KANUNI BENCHMARK - Procurement Risk Detection           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	if *csvPath != "" {
		fmt.Printf("\nCSV File:    %s\n", *csvPath)
	} else {
		fmt.Printf("\nSynthetic:   %d documents\n", *synthetic)
	}
	fmt.Printf("Kanuni URL:  %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	// Check Kanuni is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kanuni not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kanuni is running:")
		fmt.Println("  go run cmd/kanuni/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kanuni is healthy")

	// Load documents
	var documents []LabeledDocument
	var err error
	if *csvPath != "" {
		fmt.Printf("\nReading labeled documents from %s...\n", *csvPath)
		documents, err = readLabeledCSV(*csvPath, *limit)
		if err != nil {
			fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("\nGenerating %d synthetic documents...\n", *synthetic)
		documents = generateSyntheticCorpus(*synthetic)
	}
	fmt.Printf("✓ Loaded %d documents\n", len(documents))

	riskyCount := 0
	for _, doc := range documents {
		if doc.IsRisky {
			riskyCount++
		}
	}
	fmt.Printf("  - Risky: %d (%.2f%%)\n", riskyCount, 100*float64(riskyCount)/float64(len(documents)))
	fmt.Printf("  - Clean: %d (%.2f%%)\n", len(documents)-riskyCount, 100*float64(len(documents)-riskyCount)/float64(len(documents)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(documents, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readLabeledCSV(path string, limit int) ([]LabeledDocument, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"id", "label", "text"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var documents []LabeledDocument
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		documents = append(documents, LabeledDocument{
			ID:      record[colIndex["id"]],
			IsRisky: record[colIndex["label"]] == "1",
			Text:    record[colIndex["text"]],
		})

		if limit > 0 && len(documents) >= limit {
			break
		}
	}

	return documents, nil
}

// Synthetic corpus fragments. Risky documents stack contract
// splitting, corruption language, and vendor concentration; clean
// documents read like routine tender records.
var riskyFragments = []string{
	"The committee resolved to split the contract into quarterly awards to stay below the review threshold.",
	"A kickback was reportedly paid to expedite the award to the preferred supplier.",
	"Minutes suggest bid rigging among the three shortlisted firms.",
	"Vendor: Acme Supplies Ltd received every award this quarter. Vendor: Acme Supplies Ltd also holds the maintenance contract.",
	"Direct procurement was used without any recorded justification.",
	"Tenders were opened two days after the deadline with no bidders present.",
}

var cleanFragments = []string{
	"The procurement plan for the financial year was prepared and approved by the accounting officer.",
	"Tender security of 1.5% was required and all bids were opened immediately after the deadline in the presence of bidders.",
	"The evaluation committee applied the criteria set out in the tender documents.",
	"The award was made to the lowest evaluated tenderer and notified in writing to all bidders.",
	"Invoices INV-2024-011, INV-2024-012 and INV-2024-019 were settled within the contractual period.",
	"A margin of preference was applied for disadvantaged groups in accordance with the reservation scheme.",
}

const fillerSentence = " The annexes describe packaging, delivery schedules and storage arrangements in routine detail."

func generateSyntheticCorpus(n int) []LabeledDocument {
	rng := rand.New(rand.NewSource(42))
	documents := make([]LabeledDocument, 0, n)

	for i := 0; i < n; i++ {
		risky := i%2 == 0
		fragments := cleanFragments
		if risky {
			fragments = riskyFragments
		}

		var b strings.Builder
		b.WriteString("TENDER RECORD " + fmt.Sprintf("%04d", i) + ". ")
		for j := 0; j < 3; j++ {
			b.WriteString(fragments[rng.Intn(len(fragments))])
			b.WriteString(" ")
		}
		for b.Len() < 400 {
			b.WriteString(fillerSentence)
		}

		documents = append(documents, LabeledDocument{
			ID:      fmt.Sprintf("doc-%04d", i),
			IsRisky: risky,
			Text:    b.String(),
		})
	}

	return documents
}

func runBenchmark(documents []LabeledDocument, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan LabeledDocument, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for doc := range work {
				start := time.Now()
				result, err := analyzeDocument(client, baseURL, tenantID, doc)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", doc.ID, err)
					}
					continue
				}

				if doc.IsRisky {
					atomic.AddInt64(&metrics.TotalRisky, 1)
				} else {
					atomic.AddInt64(&metrics.TotalClean, 1)
				}

				// HIGH and CRITICAL count as a risk verdict
				predicted := result.RiskLevel == "HIGH" || result.RiskLevel == "CRITICAL"
				actual := doc.IsRisky

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					fmt.Printf("%s %-10s | Risky: %-5v | Kanuni: %-8s (%3d) | %s\n",
						status,
						doc.ID,
						doc.IsRisky,
						result.RiskLevel,
						result.RiskScore,
						result.TopConcern,
					)
				}
			}
		}()
	}

	for _, doc := range documents {
		work <- doc
	}
	close(work)

	wg.Wait()

	return metrics
}

func analyzeDocument(client *http.Client, baseURL, tenantID string, doc LabeledDocument) (*AnalyzeResponse, error) {
	req := AnalyzeRequest{
		FileName: doc.ID + ".txt",
		Mode:     "procurement",
		Text:     doc.Text,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Risky:      %d\n", m.TotalRisky)
	fmt.Printf("   Total Clean:      %d\n", m.TotalClean)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    RISK        OK")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  R  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           C  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of risk verdicts, how many were actually risky)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of risky documents, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalRisky > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalRisky) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalRisky) * 100
		fmt.Printf("   Risk Detected:     %d / %d (%.2f%%)\n", m.TruePositives, m.TotalRisky, detectionRate)
		fmt.Printf("   Risk Missed:       %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalRisky, missRate)
	}
	if m.TotalClean > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalClean) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalClean, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		dps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f docs/sec\n", dps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most risky documents")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some risky documents")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant risk being missed")
	} else {
		fmt.Println("   ❌ Poor recall - most risky documents are being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - risk verdicts are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
