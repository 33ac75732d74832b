package web

// Swap widget backed by the JSON API.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Token Swap</title>
  <style>
    :root { --ink:#111; --ink-mid:#4d4d4d; --panel:#f6f6f6; --err:#b00020; --warn:#a15c00; }
    * { box-sizing:border-box; }
    body { margin:0; min-height:100vh; display:flex; align-items:center; justify-content:center;
      font-family:'Space Mono','JetBrains Mono',monospace; color:var(--ink); background:#fff; }
    #app { width:min(460px, 94vw); background:var(--panel); border:3px solid var(--ink); padding:1.5rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15); display:flex; flex-direction:column; gap:1rem; }
    .row { display:flex; gap:.5rem; align-items:center; }
    select, input, button { font:inherit; border:2px solid var(--ink); padding:.5rem; background:#fff; }
    input { flex:1; }
    button { cursor:pointer; }
    button:disabled { opacity:.4; cursor:not-allowed; }
    .hint { font-size:.75rem; color:var(--ink-mid); min-height:1em; }
    .error { color:var(--err); }
    .warning { color:var(--warn); }
    #log { font-size:.7rem; max-height:10rem; overflow-y:auto; border-top:1px dashed var(--ink-mid); padding-top:.5rem; }
  </style>
</head>
<body>
<div id="app">
  <div class="row"><select id="from"></select><input id="amount" inputmode="decimal" placeholder="0.0" /><button id="max">MAX</button></div>
  <div class="hint" id="fromHint"></div>
  <div class="row"><button id="flip">⇅</button></div>
  <div class="row"><select id="to"></select><input id="output" readonly /></div>
  <div class="hint" id="toHint"></div>
  <div class="hint" id="rate"></div>
  <div class="hint" id="verdict"></div>
  <button id="submit" disabled>Swap</button>
  <div class="hint" id="result"></div>
  <div id="log"></div>
</div>
<script>
  const $ = (id) => document.getElementById(id);
  let tokens = [], balances = {}, settling = false;

  const post = (path, body) => fetch(path, { method:'POST', headers:{'Content-Type':'application/json'}, body:JSON.stringify(body) });
  const form = () => ({ from:$('from').value, to:$('to').value, amount:$('amount').value });

  function fillSelect(el, exclude) {
    const current = el.value;
    el.innerHTML = '<option value="">select</option>' + tokens
      .filter(t => t.symbol !== exclude)
      .map(t => '<option value="' + t.symbol + '">' + t.symbol + '</option>').join('');
    el.value = tokens.some(t => t.symbol === current && t.symbol !== exclude) ? current : '';
  }

  async function loadTokens() {
    const res = await fetch('/api/tokens');
    if (res.status === 503) { $('verdict').textContent = 'prices unavailable'; return; }
    tokens = (await res.json()).tokens;
    fillSelect($('from'), $('to').value);
    fillSelect($('to'), $('from').value);
  }

  async function loadBalances() {
    const res = await fetch('/api/balances');
    (await res.json()).balances.forEach(b => { balances[b.symbol] = b; });
  }

  async function refresh() {
    fillSelect($('from'), $('to').value);
    fillSelect($('to'), $('from').value);
    const [v, q] = await Promise.all([post('/api/validate', form()), post('/api/quote', form())]);
    if (v.status === 503) { $('verdict').textContent = 'prices unavailable'; $('submit').disabled = true; return; }
    const verdict = await v.json();
    const quote = (await q.json()).quote;
    $('verdict').textContent = verdict.message || '';
    $('verdict').className = 'hint ' + (verdict.verdict.error ? 'error' : verdict.verdict.warning ? 'warning' : '');
    $('fromHint').textContent = $('from').value ? 'balance: ' + verdict.balance_display + (quote ? '  ' + quote.from_usd_display : '') : '';
    $('output').value = quote ? quote.output_display : '';
    $('toHint').textContent = quote ? quote.to_usd_display : '';
    $('rate').textContent = quote ? '1 ' + $('from').value + ' = ' + quote.rate_display + ' ' + $('to').value : '';
    $('submit').disabled = settling || !verdict.can_submit;
  }

  $('amount').addEventListener('beforeinput', (e) => {
    if (e.data && !/^[\d.,]*$/.test(e.data)) e.preventDefault();
  });
  $('amount').addEventListener('input', () => {
    const v = $('amount').value.replace(/,/g, '.');
    $('amount').value = /^\d*\.?\d*$/.test(v) ? v : v.slice(0, -1);
    refresh();
  });
  $('from').addEventListener('change', refresh);
  $('to').addEventListener('change', refresh);
  $('flip').addEventListener('click', () => {
    const f = $('from').value; $('from').value = ''; fillSelect($('from'), '');
    $('from').value = $('to').value; fillSelect($('to'), ''); $('to').value = f;
    refresh();
  });
  $('max').addEventListener('click', () => {
    const b = balances[$('from').value];
    if (b && Number(b.balance) > 0) { $('amount').value = b.balance; refresh(); }
  });
  $('submit').addEventListener('click', async () => {
    settling = true; $('submit').disabled = true; $('submit').textContent = 'Swapping...';
    const res = await post('/api/swaps', form());
    const s = await res.json();
    settling = false; $('submit').textContent = 'Swap';
    $('result').textContent = s.message || s.error || s.verdict.error || s.verdict.warning || s.status;
    if (s.status === 'settled') $('amount').value = '';
    await loadBalances();
    refresh();
  });

  const swaps = new EventSource('/api/swaps/stream');
  swaps.addEventListener('swap', (e) => {
    const s = JSON.parse(e.data);
    const line = document.createElement('div');
    line.textContent = new Date(s.ts).toLocaleTimeString() + '  ' + s.message;
    $('log').prepend(line);
  });
  const bal = new EventSource('/api/balances/stream');
  bal.addEventListener('balance', (e) => {
    const u = JSON.parse(e.data);
    balances[u.symbol] = { symbol:u.symbol, balance:u.balance };
  });

  Promise.all([loadTokens(), loadBalances()]).then(refresh);
  setInterval(() => loadTokens().then(refresh), 30000);
</script>
</body>
</html>
`
