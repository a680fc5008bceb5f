package report

const stylesheet = `
:root {
  --color-allowed: #22c55e;
  --color-warned: #f59e0b;
  --color-blocked: #ef4444;
  --color-neutral: #6b7280;
  --color-bg: #f9fafb;
  --color-card: #ffffff;
  --color-border: #e5e7eb;
  --color-text: #111827;
  --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, system-ui, sans-serif;
  --font-mono: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace;
}
* { box-sizing: border-box; }
body {
  margin: 0;
  padding: 24px;
  font-family: var(--font-sans);
  background: var(--color-bg);
  color: var(--color-text);
}
.container { max-width: 1100px; margin: 0 auto; }
header { display: flex; justify-content: space-between; align-items: flex-start; margin-bottom: 24px; }
header h1 { margin: 0 0 4px; font-size: 22px; }
.session-id { color: var(--color-neutral); font-family: var(--font-mono); font-size: 13px; }
.health-badge-container { text-align: right; }
.health-badge {
  display: inline-block;
  padding: 6px 16px;
  border-radius: 999px;
  color: #fff;
  font-weight: 700;
  letter-spacing: 0.05em;
}
.health-badge.clean { background: #22c55e; }
.health-badge.warnings { background: #f59e0b; }
.health-badge.blocked { background: #ef4444; }
.health-subtitle { margin-top: 6px; font-size: 13px; color: var(--color-neutral); }
section { margin-bottom: 24px; }
h2 { font-size: 16px; margin: 0 0 12px; }
.summary {
  background: var(--color-card);
  border: 1px solid var(--color-border);
  border-radius: 8px;
  padding: 16px;
}
.summary p { margin: 0; line-height: 1.5; }
.stats { display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr)); gap: 12px; }
.stat-card {
  background: var(--color-card);
  border: 1px solid var(--color-border);
  border-radius: 8px;
  padding: 12px 16px;
}
.stat-label { font-size: 12px; color: var(--color-neutral); text-transform: uppercase; }
.stat-value { font-size: 24px; font-weight: 700; margin-top: 4px; }
.stat-card.warned .stat-value { color: var(--color-warned); }
.stat-card.blocked .stat-value { color: var(--color-blocked); }
.tools-list { list-style: none; padding: 0; margin: 8px 0 0; display: flex; flex-wrap: wrap; gap: 8px; }
.tools-list li { display: flex; align-items: center; gap: 4px; font-size: 13px; }
.tool-icon { width: 16px; height: 16px; vertical-align: middle; flex-shrink: 0; }
.metadata { display: grid; grid-template-columns: max-content 1fr; gap: 6px 16px; font-size: 13px; }
.metadata dt { color: var(--color-neutral); }
.metadata dd { margin: 0; font-family: var(--font-mono); word-break: break-all; }
.caveat {
  margin-top: 12px;
  padding: 8px 12px;
  border-left: 4px solid var(--color-warned);
  background: rgba(245, 158, 11, 0.1);
  font-size: 13px;
}
.timeline-container {
  position: sticky;
  top: 0;
  z-index: 10;
  background: var(--color-bg);
  padding: 8px 0;
  max-height: 140px;
  overflow-y: auto;
}
.timeline { display: flex; flex-wrap: wrap; gap: 6px; }
.timeline-node {
  display: flex;
  flex-direction: column;
  align-items: center;
  min-width: 56px;
  padding: 4px 6px;
  border-radius: 6px;
  border: 2px solid var(--color-allowed);
  background: var(--color-card);
  cursor: pointer;
  font-size: 11px;
}
.timeline-node:hover { transform: translateY(-2px); box-shadow: 0 2px 6px rgba(0, 0, 0, 0.1); }
.timeline-node.allowed { border-color: var(--color-allowed); }
.timeline-node.warned { border-color: var(--color-warned); background: rgba(245, 158, 11, 0.1); }
.timeline-node.blocked { border-color: var(--color-blocked); background: rgba(239, 68, 68, 0.1); }
.timeline-node.scan_failed { border-color: var(--color-neutral); }
.node-time { color: var(--color-neutral); font-family: var(--font-mono); }
.events { display: flex; flex-direction: column; gap: 8px; }
.event-card {
  background: var(--color-card);
  border: 1px solid var(--color-border);
  border-left: 4px solid var(--color-allowed);
  border-radius: 6px;
  transition: box-shadow 0.3s;
}
.event-card.warned { border-left-color: var(--color-warned); }
.event-card.blocked { border-left-color: var(--color-blocked); }
.event-card.scan_failed { border-left-color: var(--color-neutral); }
.event-card.highlighted { box-shadow: 0 0 0 3px rgba(59, 130, 246, 0.5); }
.event-header {
  display: flex;
  align-items: center;
  gap: 10px;
  padding: 10px 14px;
  cursor: pointer;
}
.event-header:hover { background: rgba(0, 0, 0, 0.03); }
.event-id { color: var(--color-neutral); font-family: var(--font-mono); font-size: 12px; }
.event-tool { font-weight: 600; }
.event-time { color: var(--color-neutral); font-size: 12px; margin-left: auto; }
.event-verdict {
  font-size: 11px;
  font-weight: 700;
  padding: 2px 8px;
  border-radius: 999px;
  color: #fff;
  background: var(--color-allowed);
}
.event-verdict.warned { background: var(--color-warned); }
.event-verdict.blocked { background: var(--color-blocked); }
.event-verdict.scan_failed { background: var(--color-neutral); }
.expand-icon { transition: transform 0.2s; color: var(--color-neutral); }
.event-card.expanded .expand-icon { transform: rotate(180deg); }
.event-details { padding: 0 14px 14px; border-top: 1px solid var(--color-border); }
.detail-section { margin-top: 12px; }
.detail-label { font-size: 12px; font-weight: 600; color: var(--color-neutral); margin-bottom: 4px; }
.detail-value {
  background: #f3f4f6;
  border-radius: 4px;
  padding: 8px;
  font-size: 12px;
}
.detail-value pre {
  margin: 0;
  font-family: var(--font-mono);
  white-space: pre-wrap;
  word-break: break-word;
}
.detail-meta { display: flex; gap: 16px; font-size: 12px; color: var(--color-neutral); margin-top: 12px; }
.files-list { margin: 0; padding-left: 18px; font-family: var(--font-mono); font-size: 12px; }
.truncation-indicator { margin-top: 6px; font-size: 11px; color: var(--color-warned); font-style: italic; }
.nova-verdict-section {
  margin-top: 12px;
  padding: 8px 12px;
  border-radius: 4px;
  background: rgba(239, 68, 68, 0.05);
  font-size: 12px;
}
.nova-severity { font-weight: 700; text-transform: uppercase; }
.nova-severity.low { color: var(--color-neutral); }
.nova-severity.medium { color: var(--color-warned); }
.nova-severity.high { color: var(--color-blocked); }
.nova-severity.critical { color: #991b1b; }
.no-events { color: var(--color-neutral); font-style: italic; }
footer { margin-top: 32px; font-size: 12px; color: var(--color-neutral); text-align: center; }
`

const script = `
function toggleEvent(eventId) {
  var card = document.getElementById('event-' + eventId);
  var details = document.getElementById('details-' + eventId);
  if (!card || !details) { return; }
  if (details.style.display === 'none') {
    details.style.display = 'block';
    card.classList.add('expanded');
  } else {
    details.style.display = 'none';
    card.classList.remove('expanded');
  }
}

function scrollToEvent(eventId) {
  var card = document.getElementById('event-' + eventId);
  if (!card) { return; }
  var details = document.getElementById('details-' + eventId);
  if (details && details.style.display === 'none') { toggleEvent(eventId); }
  card.scrollIntoView({ behavior: 'smooth', block: 'center' });
  card.classList.add('highlighted');
  setTimeout(function () { card.classList.remove('highlighted'); }, 1500);
}
`
