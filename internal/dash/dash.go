// Package dash serves a small live view of the engine: current loop state,
// the last selected route, its evaluation figures, and a short history of
// recent cycles.
package dash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const historySize = 50

// Row is one evaluated cycle as shown in the dashboard table.
type Row struct {
	Path       string `json:"path"`
	StartAmt   string `json:"startAmount"`
	NetProfit  string `json:"netProfit"`
	ProfitPct  string `json:"profitPct"`
	NetworkFee string `json:"networkFee"`
	Executed   bool   `json:"executed"`
	TS         int64  `json:"ts"`
}

// Snapshot is the full dashboard state returned by /api/state.
type Snapshot struct {
	State   string `json:"state"`
	Balance string `json:"balance"`
	Latest  *Row   `json:"latest,omitempty"`
	History []Row  `json:"history"`
}

type Store struct {
	mu      sync.RWMutex
	state   string
	balance string
	latest  *Row
	history []Row // newest first
}

func NewStore() *Store {
	return &Store{state: "Idle", history: make([]Row, 0, historySize)}
}

func (s *Store) SetState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Store) SetBalance(balance string) {
	s.mu.Lock()
	s.balance = balance
	s.mu.Unlock()
}

// RecordCycle stores one evaluated cycle as the latest row and prepends it to
// the bounded history.
func (s *Store) RecordCycle(row Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &row
	s.history = append([]Row{row}, s.history...)
	if len(s.history) > historySize {
		s.history = s.history[:historySize]
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{
		State:   s.state,
		Balance: s.balance,
		History: append([]Row(nil), s.history...),
	}
	if s.latest != nil {
		cp := *s.latest
		out.Latest = &cp
	}
	return out
}

func stateHandler(s *Store) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Snapshot())
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexHTML)
	})
	return mux
}

func StartHTTP(ctx context.Context, s *Store, addr string, log *zap.Logger) {
	mux := stateHandler(s)

	srv := &http.Server{
		Addr:              addr,
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() { <-ctx.Done(); _ = srv.Close() }()

	log.Info("dash listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("dash http server error", zap.Error(err))
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>Triangular Arb Monitor</title>
  <style>
    :root { --bg:#f8fafc; --card:#fff; --muted:#6b7280; --chip:#e5e7eb; }
    body{margin:0;background:var(--bg);font:14px/1.4 ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Ubuntu; color:#111827;}
    .wrap{max-width:960px;margin:24px auto;padding:0 16px;}
    .hdr{display:flex;align-items:flex-end;justify-content:space-between;margin-bottom:12px;}
    .state{font-size:12px;padding:2px 8px;border-radius:999px;background:#d1fae5;color:#065f46;}
    table{width:100%;border-collapse:collapse;background:var(--card);border-radius:16px;overflow:hidden;box-shadow:0 10px 30px rgba(0,0,0,.06);}
    thead{background:#f3f4f6;} th,td{padding:12px 14px;text-align:left;} tbody tr{border-top:1px solid #f3f4f6;}
    .chip{display:inline-block;font-size:12px;padding:2px 8px;background:var(--chip);border-radius:999px;color:#374151;}
    .pct{padding:2px 8px;border-radius:8px;font-size:12px;}
    .pct.ok{background:#dcfce7;color:#166534;} .pct.bad{background:#fee2e2;color:#991b1b;}
    .sub{color:var(--muted);font-size:12px;margin:0;}
  </style>
</head>
<body>
<div class="wrap">
  <div class="hdr">
    <div>
      <h1 style="margin:0;font-size:22px;font-weight:600">Triangular Arb Monitor</h1>
      <p class="sub">Solana constant-product pools</p>
    </div>
    <div><span id="loopstate" class="state">Idle</span> <span id="balance" class="chip"></span></div>
  </div>
  <table>
    <thead>
      <tr>
        <th>Route</th><th>Start</th><th>Net profit</th><th>Profit %</th>
        <th>Network fee</th><th>Executed</th><th style="text-align:right">When</th>
      </tr>
    </thead>
    <tbody id="rows"></tbody>
  </table>
</div>
<script>
  function pctClass(x){ return (parseFloat(x)||0) > 0 ? 'ok' : 'bad'; }
  function rowHTML(r){
    return '<tr>'
      + '<td><strong>' + (r.path||'') + '</strong></td>'
      + '<td>' + (r.startAmount||'') + '</td>'
      + '<td>' + (r.netProfit||'') + '</td>'
      + '<td><span class="pct ' + pctClass(r.profitPct) + '">' + (r.profitPct||'') + '%</span></td>'
      + '<td>' + (r.networkFee||'') + '</td>'
      + '<td>' + (r.executed ? 'yes' : 'no') + '</td>'
      + '<td style="text-align:right;color:#6B7280;font-size:12px">' + new Date(r.ts||Date.now()).toLocaleTimeString() + '</td>'
      + '</tr>';
  }
  async function tick(){
    try{
      var res = await fetch('/api/state', {cache:'no-store'});
      if(!res.ok) throw new Error('status '+res.status);
      var data = await res.json();
      document.getElementById('loopstate').textContent = data.state || 'Idle';
      document.getElementById('balance').textContent = data.balance ? ('balance: ' + data.balance) : '';
      document.getElementById('rows').innerHTML = (data.history||[]).map(rowHTML).join('');
    }catch(e){}
  }
  tick(); setInterval(tick, 1000);
</script>
</body>
</html>`
