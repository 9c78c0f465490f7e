package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	table := flag.String("table", "T01", "table label to fight over")
	adminToken := flag.String("admin-token", "dev-admin-token", "admin token for setup endpoints")
	setup := flag.Bool("setup", true, "register table and a menu item before test")

	// 抢桌测试参数：N 个员工并发往同一张桌下单
	nUsers := flag.Int("users", 100, "distinct staff users")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	productID := 1
	if *setup {
		// 先登记桌位和一个菜单项，避免 404 干扰测试结果。
		_ = doPOST(client, fmt.Sprintf("%s/api/tables", *baseURL),
			map[string]string{"label": *table},
			map[string]string{"X-Admin-Token": *adminToken})
		id, err := createMenuItem(client, *baseURL, *adminToken)
		if err != nil {
			panic(fmt.Sprintf("setup menu: %v", err))
		}
		productID = id
		fmt.Println("setup ok, product id:", productID)
	}

	// 抢桌测试：期望恰好 1 个 200，其余 409
	fmt.Printf("start table-conflict test: table=%s users=%d concurrency=%d\n", *table, *nUsers, *concurrency)
	results := runCreate(client, *baseURL, *table, productID, *nUsers, *concurrency)
	printSummary("table_conflict", results)

	status, err := getTableStatus(client, *baseURL, *table)
	if err != nil {
		fmt.Println("table status check err:", err)
	} else {
		fmt.Printf("final status of %s: %s\n", *table, status)
	}
}

func runCreate(client *http.Client, baseURL, table string, productID, nUsers, concurrency int) []Result {
	type Item struct {
		ProductID int `json:"product_id"`
		Quantity  int `json:"quantity"`
	}
	type Req struct {
		TableLabel      string `json:"table_label"`
		OrderedByUserID int    `json:"ordered_by_user_id"`
		Items           []Item `json:"items"`
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, nUsers)

	for i := 0; i < nUsers; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			req := Req{
				TableLabel:      table,
				OrderedByUserID: idx + 1,
				Items:           []Item{{ProductID: productID, Quantity: 1}},
			}
			results[idx] = createOnce(client, baseURL, req)
		}(i)
	}

	wg.Wait()
	return results
}

func createOnce(client *http.Client, baseURL string, req any) Result {
	b, _ := json.Marshal(req)
	url := fmt.Sprintf("%s/api/orders", baseURL)
	httpReq, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

// printSummary 聚合输出不同状态码分布。一桌只能有一张 open 订单，
// 所以 200 的个数超过 1 就说明不变量被打穿了。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 404, 409, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
	if count[200] == 1 {
		fmt.Println("  invariant held: exactly one order won the table")
	} else {
		fmt.Printf("  INVARIANT VIOLATED: %d orders won the table\n", count[200])
	}
}

// doPOST 发送 POST 请求（支持附加请求头）。
func doPOST(client *http.Client, url string, body any, headers map[string]string) error {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(http.MethodPost, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func createMenuItem(client *http.Client, baseURL, adminToken string) (int, error) {
	b, _ := json.Marshal(map[string]any{"name": "loadtest espresso", "price": 350})
	req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/menu", baseURL), bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", adminToken)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		Code int `json:"code"`
		Data struct {
			ID int `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, err
	}
	return out.Data.ID, nil
}

// getTableStatus 压测后查桌位派生状态，应为 Occupied（赢家还没结账）。
func getTableStatus(client *http.Client, baseURL, table string) (string, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/tables", baseURL))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Code int `json:"code"`
		Data []struct {
			Label  string `json:"label"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return "", err
	}
	for _, t := range out.Data {
		if t.Label == table {
			return t.Status, nil
		}
	}
	return "", fmt.Errorf("table %s not in response", table)
}
