package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Killfocus</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        :root {
            --bg-primary: #f5f5f5;
            --bg-secondary: white;
            --text-primary: #333;
            --text-muted: #7f8c8d;
            --border-color: #eee;
            --accent-color: #3498db;
            --danger-color: #c0392b;
            --heading-color: #2c3e50;
            --shadow: rgba(0,0,0,0.1);
        }

        [data-theme="dark"] {
            --bg-primary: #1a1a1a;
            --bg-secondary: #2d2d2d;
            --text-primary: #e0e0e0;
            --text-muted: #a0a0a0;
            --border-color: #404040;
            --accent-color: #5dade2;
            --danger-color: #e74c3c;
            --heading-color: #5dade2;
            --shadow: rgba(0,0,0,0.3);
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: var(--bg-primary);
            padding: 20px;
            color: var(--text-primary);
        }

        .header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 30px;
        }

        .kill-btn {
            background: var(--danger-color);
            color: white;
            border: none;
            border-radius: 50px;
            padding: 10px 20px;
            cursor: pointer;
            font-size: 1rem;
        }

        .report-box {
            background: var(--bg-secondary);
            border-radius: 8px;
            box-shadow: 0 2px 4px var(--shadow);
            padding: 24px;
        }

        .report-box h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            color: var(--heading-color);
            border-bottom: 2px solid var(--accent-color);
            padding-bottom: 10px;
        }

        .app-item {
            display: flex;
            justify-content: space-between;
            padding: 12px 8px;
            border-bottom: 1px solid var(--border-color);
        }

        .app-item.protected .app-name {
            color: var(--text-muted);
        }

        .app-item.selected .app-name {
            color: var(--danger-color);
            font-weight: 600;
        }

        .app-time, .app-event, .loading {
            color: var(--text-muted);
            font-size: 0.9rem;
        }

        .outcome {
            margin: 0 0 20px;
            font-weight: 600;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Killfocus</h1>
        <button class="kill-btn" hx-post="/api/kill" hx-target="#outcome" hx-swap="innerHTML">Kill foreground app</button>
    </div>
    <div id="outcome"></div>
    <div class="report-box">
        <h2>Recent Apps</h2>
        <div hx-get="/api/usage" hx-trigger="load, every 10s" hx-swap="innerHTML">
            <div class="loading">Loading...</div>
        </div>
    </div>
    <script>
        const prefersDark = window.matchMedia('(prefers-color-scheme: dark)').matches;
        document.documentElement.setAttribute('data-theme', localStorage.getItem('theme') || (prefersDark ? 'dark' : 'light'));
    </script>
</body>
</html>`
