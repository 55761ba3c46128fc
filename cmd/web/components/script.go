package components

// clientScript connects the page to its live session. It forwards form,
// slider, link and card events and applies the server's patches, history
// updates, alerts and toasts.
const clientScript = `(function () {
  var root = document.body;
  var wsPath = root.getAttribute("data-ws-path");
  if (!wsPath || !window.WebSocket) return;
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + wsPath + location.search);
  var send = function (m) { if (ws.readyState === 1) ws.send(JSON.stringify(m)); };
  var form = document.querySelector("form[data-search-form]");

  if (form) {
    form.addEventListener("input", function (e) {
      var t = e.target;
      if (t.classList.contains("range-slider")) {
        var w = t.closest(".filter-range");
        send({type: "slider", key: w.getAttribute("data-filter-key"),
          side: t.classList.contains("range-min") ? "min" : "max", number: parseFloat(t.value)});
      } else if (t.type === "text" || t.type === "search") {
        send({type: "input", name: t.name, value: t.value});
      }
    });
    form.addEventListener("change", function (e) {
      var t = e.target;
      if (!t.name || t.classList.contains("range-slider") || t.type === "text" || t.type === "search") return;
      var m = {type: "change", name: t.name, value: t.value};
      if (t.type === "checkbox" || t.type === "radio") m.checked = t.checked;
      send(m);
    });
    form.addEventListener("submit", function (e) { e.preventDefault(); send({type: "submit"}); });
  }

  document.addEventListener("click", function (e) {
    var el = e.target.closest("[data-search-link],[data-chip],[data-reset-all],[data-sort-option],[data-per-page-option],.like-button,[data-featured-toggle],[data-share-action]");
    if (!el) return;
    if (el.hasAttribute("data-search-link")) { e.preventDefault(); send({type: "navigate", href: el.getAttribute("href")}); }
    else if (el.hasAttribute("data-chip")) send({type: "reset", key: el.getAttribute("data-chip")});
    else if (el.hasAttribute("data-reset-all")) { e.preventDefault(); send({type: "reset_all"}); }
    else if (el.hasAttribute("data-sort-option")) send({type: "sort", value: el.getAttribute("data-sort-option")});
    else if (el.hasAttribute("data-per-page-option")) send({type: "per_page", value: el.getAttribute("data-per-page-option")});
    else if (el.classList.contains("like-button")) send({type: "like", id: +el.getAttribute("data-property-id")});
    else if (el.hasAttribute("data-featured-toggle")) send({type: "featured", id: +el.getAttribute("data-property-id")});
    else {
      var share = el.closest("[data-share-container]").querySelector("[data-share-toggle]");
      send({type: "share", id: +share.getAttribute("data-property-id"), action: el.getAttribute("data-share-action")});
    }
  });

  window.addEventListener("popstate", function () { send({type: "popstate", href: location.pathname + location.search}); });

  var toast = function (t) {
    var box = document.createElement("div");
    box.className = "fixed bottom-4 right-4 px-4 py-2 rounded shadow text-white " + (t.error ? "bg-red-600" : "bg-deepOcean");
    box.textContent = t.message;
    document.body.appendChild(box);
    setTimeout(function () { box.remove(); }, 3000);
  };

  var applyFilter = function (f) {
    var w = document.querySelector('.filter-range[data-filter-key="' + f.key + '"]');
    if (!w) return;
    w.querySelector(".range-min").value = f.min;
    w.querySelector(".range-max").value = f.max;
    w.querySelectorAll(".range-slider").forEach(function (r) { r.style.background = f.gradient; });
    w.querySelector('input[data-field="min"]').value = f.hidden_min;
    w.querySelector('input[data-field="max"]').value = f.hidden_max;
    w.querySelector('[data-value-label="min"]').textContent = f.min_label;
    w.querySelector('[data-value-label="max"]').textContent = f.max_label;
  };

  ws.onmessage = function (ev) {
    var m = JSON.parse(ev.data);
    switch (m.type) {
      case "patch":
        (m.patches || []).forEach(function (p) {
          var el = document.querySelector(p.selector);
          if (el) el.innerHTML = p.html;
        });
        break;
      case "history": history.replaceState(null, "", m.url); break;
      case "alert": alert(m.message); break;
      case "toast": toast(m.toast); break;
      case "init": (m.filters || []).forEach(applyFilter); break;
      case "filter": applyFilter(m.filter); break;
      case "loading":
        var l = document.getElementById("search-loading-indicator");
        if (l) l.classList.toggle("hidden", !m.loading);
        break;
      case "like":
        document.querySelectorAll('.like-button[data-property-id="' + m.id + '"] i').forEach(function (i) {
          i.className = m.liked ? "ri-heart-fill text-red-500" : "ri-heart-line text-coolSage";
        });
        break;
      case "featured":
        document.querySelectorAll('[data-featured-toggle][data-property-id="' + m.id + '"]').forEach(function (b) {
          b.setAttribute("data-featured", m.featured ? "true" : "false");
          b.querySelector("i").className = m.featured ? "ri-star-fill text-yellow-500" : "ri-star-line text-coolSage";
        });
        break;
      case "share":
        var s = m.share;
        if (s.action === "copy" && navigator.clipboard) navigator.clipboard.writeText(s.text);
        else if (s.url && !window.open(s.url, "_blank") && s.fallback) window.open(s.fallback, "_blank");
        if (s.toast) toast(s.toast);
        break;
      case "error": console.warn(m.message); break;
    }
  };
})();`
