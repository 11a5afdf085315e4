package fallback

type layout struct {
	html string
	css  string
	js   string
}

const bannerHTML = `<div class="fallback-component fallback-{{category}}">
  <div class="fallback-banner" role="status">{{reason}}: showing an example component</div>
  <p class="fallback-request">Your request: "{{prompt}}"</p>
`

const baseCSS = `.fallback-component {
  font-family: system-ui, -apple-system, sans-serif;
  max-width: 520px;
  margin: 20px auto;
  padding: 20px;
  border-radius: 8px;
  box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
  background: {{background}};
  color: {{text}};
}

.fallback-banner {
  font-size: 12px;
  text-transform: uppercase;
  letter-spacing: 0.05em;
  color: {{accent}};
  margin-bottom: 8px;
}

.fallback-request {
  font-size: 14px;
  opacity: 0.8;
}

.action-button {
  background-color: {{accent}};
  color: white;
  border: none;
  padding: 8px 16px;
  border-radius: 4px;
  cursor: pointer;
  transition: opacity 0.2s;
}

.action-button:hover {
  opacity: 0.85;
}
`

var layouts = map[Category]layout{
	CategoryForm: {
		html: `  <form class="fallback-form" onsubmit="return false;">
    <label>Name <input type="text" id="fallback-name" placeholder="Jane Doe"></label>
    <label>Email <input type="email" id="fallback-email" placeholder="jane@example.com"></label>
    <button type="button" class="action-button">Submit</button>
    <p class="fallback-output" aria-live="polite"></p>
  </form>`,
		css: `
.fallback-form label {
  display: block;
  margin-bottom: 12px;
  font-size: 14px;
}

.fallback-form input {
  display: block;
  width: 100%;
  padding: 8px;
  margin-top: 4px;
  border: 1px solid #d1d5db;
  border-radius: 4px;
  box-sizing: border-box;
}`,
		js: `document.querySelector('.action-button').addEventListener('click', function () {
  var name = document.getElementById('fallback-name').value || 'there';
  document.querySelector('.fallback-output').textContent = 'Thanks, ' + name + '!';
});`,
	},
	CategoryCard: {
		html: `  <div class="fallback-card">
    <div class="fallback-card-image"></div>
    <h3>Example Card</h3>
    <p>A short description of the item goes here.</p>
    <button class="action-button">Learn more</button>
  </div>`,
		css: `
.fallback-card {
  border: 1px solid rgba(0, 0, 0, 0.08);
  border-radius: 8px;
  overflow: hidden;
  padding-bottom: 16px;
}

.fallback-card-image {
  height: 120px;
  background: linear-gradient(135deg, {{accent}}, #e5e7eb);
}

.fallback-card h3,
.fallback-card p,
.fallback-card .action-button {
  margin-left: 16px;
}`,
		js: `document.querySelector('.action-button').addEventListener('click', function () {
  this.textContent = this.textContent === 'Learn more' ? 'Show less' : 'Learn more';
});`,
	},
	CategoryNavigation: {
		html: `  <nav class="fallback-nav">
    <a href="#" class="active">Home</a>
    <a href="#">Features</a>
    <a href="#">Pricing</a>
    <a href="#">Contact</a>
  </nav>`,
		css: `
.fallback-nav {
  display: flex;
  gap: 16px;
  border-bottom: 1px solid rgba(0, 0, 0, 0.1);
  padding-bottom: 8px;
}

.fallback-nav a {
  color: inherit;
  text-decoration: none;
}

.fallback-nav a.active {
  color: {{accent}};
  font-weight: 600;
}`,
		js: `document.querySelectorAll('.fallback-nav a').forEach(function (link) {
  link.addEventListener('click', function (event) {
    event.preventDefault();
    document.querySelectorAll('.fallback-nav a').forEach(function (other) {
      other.classList.remove('active');
    });
    link.classList.add('active');
  });
});`,
	},
	CategoryTable: {
		html: `  <table class="fallback-table">
    <thead><tr><th>Name</th><th>Status</th></tr></thead>
    <tbody>
      <tr><td>Alpha</td><td>Active</td></tr>
      <tr><td>Beta</td><td>Pending</td></tr>
      <tr><td>Gamma</td><td>Done</td></tr>
    </tbody>
  </table>
  <button class="action-button">Sort by name</button>`,
		css: `
.fallback-table {
  width: 100%;
  border-collapse: collapse;
  margin-bottom: 12px;
}

.fallback-table th,
.fallback-table td {
  text-align: left;
  padding: 8px;
  border-bottom: 1px solid rgba(0, 0, 0, 0.08);
}

.fallback-table th {
  color: {{accent}};
}`,
		js: `document.querySelector('.action-button').addEventListener('click', function () {
  var body = document.querySelector('.fallback-table tbody');
  var rows = Array.prototype.slice.call(body.querySelectorAll('tr'));
  rows.reverse().forEach(function (row) { body.appendChild(row); });
});`,
	},
	CategoryChart: {
		html: `  <div class="fallback-chart">
    <div class="bar" style="height: 40%"></div>
    <div class="bar" style="height: 70%"></div>
    <div class="bar" style="height: 55%"></div>
    <div class="bar" style="height: 90%"></div>
  </div>
  <button class="action-button">Shuffle</button>`,
		css: `
.fallback-chart {
  display: flex;
  align-items: flex-end;
  gap: 8px;
  height: 140px;
  margin-bottom: 12px;
}

.fallback-chart .bar {
  flex: 1;
  background: {{accent}};
  border-radius: 4px 4px 0 0;
}`,
		js: `var heights = [40, 70, 55, 90];
document.querySelector('.action-button').addEventListener('click', function () {
  heights.push(heights.shift());
  document.querySelectorAll('.fallback-chart .bar').forEach(function (bar, i) {
    bar.style.height = heights[i] + '%';
  });
});`,
	},
	CategoryGeneric: {
		html: `  <h3>Example Component</h3>
  <p>This is a placeholder UI component.</p>
  <button class="action-button">Click Me</button>`,
		js: `document.querySelector('.action-button').addEventListener('click', function () {
  alert('Button clicked!');
});`,
	},
}
