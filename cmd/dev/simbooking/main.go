package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// simbooking fires identical booking requests at a running API at the same
// moment. Exactly one should be accepted.
func main() {
	var (
		baseURL = flag.String("url", "", "API base url (defaults to http://localhost<HTTP_ADDR>)")
		stallID = flag.String("stall", "", "stall id to book")
		start   = flag.String("start", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "first day (YYYY-MM-DD)")
		end     = flag.String("end", "", "last day (YYYY-MM-DD, defaults to -start)")
		n       = flag.Int("n", 20, "concurrent requests")
	)
	flag.Parse()

	if *stallID == "" {
		fmt.Fprintln(os.Stderr, "missing -stall")
		os.Exit(2)
	}
	if *end == "" {
		*end = *start
	}
	if *baseURL == "" {
		*baseURL = defaultBaseURL(os.Getenv("HTTP_ADDR"))
	}

	client := &http.Client{Timeout: 15 * time.Second}
	ready := make(chan struct{})
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		byStatus = map[int]int{}
		failures []string
	)
	for i := 0; i < *n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]string{
				"stallId":     *stallID,
				"vendorName":  fmt.Sprintf("Sim Vendor %d", i),
				"vendorPhone": "+100000000" + fmt.Sprint(i%10),
				"startDate":   *start,
				"endDate":     *end,
			})
			<-ready
			resp, err := client.Post(*baseURL+"/v1/bookings", "application/json", bytes.NewReader(body))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err.Error())
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			byStatus[resp.StatusCode]++
		}(i)
	}
	close(ready)
	wg.Wait()

	for code, count := range byStatus {
		fmt.Printf("%d %s: %d\n", code, http.StatusText(code), count)
	}
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "request error: %s\n", f)
	}

	accepted := byStatus[http.StatusCreated]
	fmt.Printf("accepted %d of %d\n", accepted, *n)
	if accepted != 1 {
		os.Exit(1)
	}
}

func defaultBaseURL(httpAddr string) string {
	if httpAddr == "" {
		httpAddr = ":8081"
	}
	if httpAddr[0] == ':' {
		return "http://localhost" + httpAddr
	}
	return "http://" + httpAddr
}
