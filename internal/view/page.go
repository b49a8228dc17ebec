package view

import (
	"bytes"
	"fmt"
	"html/template"
)

// PageData parameterises the view shell page.
type PageData struct {
	Title     string
	ViewID    string
	WSPath    string // websocket endpoint for frames and UI events
	EventPath string // POST fallback for UI events
	Loading   string
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
html, body { margin: 0; height: 100%; background: #020617; color: #e2e8f0; font: 13px system-ui, sans-serif; }
#toolbar { display: flex; gap: 8px; align-items: center; padding: 6px 10px; border-bottom: 1px solid #1e293b; }
#toolbar button { background: #1e293b; color: #e2e8f0; border: 1px solid #334155; border-radius: 4px; padding: 3px 10px; cursor: pointer; }
#meta { margin-left: auto; color: #94a3b8; }
#stage { position: absolute; top: 36px; left: 0; right: 0; bottom: 0; overflow: hidden; cursor: grab; }
#stage .node { cursor: pointer; }
.placeholder { padding: 24px; color: #94a3b8; }
.placeholder.error { color: #f87171; }
</style>
</head>
<body>
<div id="toolbar">
<button id="refresh">Refresh</button>
<button id="mode">Show all</button>
<button id="open">Open Linggen</button>
<span id="meta"></span>
</div>
<div id="stage"><div class="placeholder">{{.Loading}}</div></div>
<script>
(function () {
  const wsPath = {{.WSPath}};
  const eventPath = {{.EventPath}};
  const stage = document.getElementById("stage");
  const meta = document.getElementById("meta");
  const modeBtn = document.getElementById("mode");
  let ws = null;

  function send(ev) {
    const body = JSON.stringify(ev);
    if (ws && ws.readyState === WebSocket.OPEN) { ws.send(body); return; }
    fetch(eventPath, { method: "POST", headers: { "Content-Type": "application/json" }, body: body });
  }

  function connect() {
    const proto = location.protocol === "https:" ? "wss://" : "ws://";
    ws = new WebSocket(proto + location.host + wsPath);
    ws.onopen = function () {
      send({ type: "resize", width: stage.clientWidth, height: stage.clientHeight });
    };
    ws.onmessage = function (msg) {
      const f = JSON.parse(msg.data);
      if (f.type === "frame") {
        stage.innerHTML = f.svg;
        meta.textContent = f.meta;
        modeBtn.textContent = f.mode === "all" ? "Focus" : "Show all";
      } else if (f.type === "message") {
        stage.innerHTML = "";
        const d = document.createElement("div");
        d.className = f.error ? "placeholder error" : "placeholder";
        d.textContent = f.text;
        stage.appendChild(d);
        meta.textContent = "";
      }
    };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }

  function point(e) {
    const r = stage.getBoundingClientRect();
    return { x: e.clientX - r.left, y: e.clientY - r.top };
  }

  stage.addEventListener("wheel", function (e) {
    e.preventDefault();
    const p = point(e);
    send({ type: "wheel", deltaY: e.deltaY, x: p.x, y: p.y });
  }, { passive: false });

  stage.addEventListener("mousedown", function (e) {
    const node = e.target.closest(".node");
    if (node) { send({ type: "nodeDown", nodeId: node.dataset.id }); }
    const p = point(e);
    send({ type: "dragStart", x: p.x, y: p.y });
  });
  window.addEventListener("mousemove", function (e) {
    if (e.buttons !== 1) { return; }
    const p = point(e);
    send({ type: "dragMove", x: p.x, y: p.y });
  });
  window.addEventListener("mouseup", function () { send({ type: "dragEnd" }); });

  stage.addEventListener("click", function (e) {
    const node = e.target.closest(".node");
    if (node) { send({ type: "click", nodeId: node.dataset.id }); }
  });
  window.addEventListener("resize", function () {
    send({ type: "resize", width: stage.clientWidth, height: stage.clientHeight });
  });

  document.getElementById("refresh").onclick = function () { send({ type: "refresh" }); };
  document.getElementById("open").onclick = function () { send({ type: "openLinggen" }); };
  modeBtn.onclick = function () { send({ type: "toggleMode" }); };

  connect();
})();
</script>
</body>
</html>`))

// RenderPage renders the view shell. The stage shows a loading placeholder
// until the first frame arrives.
func RenderPage(d PageData) ([]byte, error) {
	if d.Title == "" {
		d.Title = "Linggen Graph"
	}
	if d.Loading == "" {
		d.Loading = LoadingText
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("view: render page: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadingText is shown until the first graph arrives.
const LoadingText = "Loading Linggen graph…"
