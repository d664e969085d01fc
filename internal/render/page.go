package render

import (
	"html/template"
	"strings"
)

// Page wraps rendered markdown in the full preview document: GitHub
// markdown styling, the live-reload client, and copy buttons on code
// blocks. body must already be sanitized HTML (see Markdown).
func Page(title string, body []byte) (string, error) {
	var b strings.Builder
	err := pageTemplate.Execute(&b, pageData{
		Title:   title,
		Content: template.HTML(body),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

type pageData struct {
	Title   string
	Content template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta name="color-scheme" content="light dark">
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/github-markdown-css/5.5.1/github-markdown.min.css">
    <style>
        .markdown-body {
            box-sizing: border-box;
            min-width: 200px;
            max-width: 980px;
            margin: 0 auto;
            padding: 45px;
        }
        pre {
            position: relative;
        }
        .copy-button {
            position: absolute;
            top: 8px;
            right: 8px;
            padding: 6px 5px;
            background-color: transparent;
            border: none;
            border-radius: 6px;
            color: #848d97;
            cursor: pointer;
            display: flex;
            align-items: center;
            justify-content: center;
        }
        .copy-button:hover {
            background-color: #262c36;
            color: #c9d1d9;
        }
        .copy-button .copy-icon { display: block; margin-right: 0.2rem; }
        .copy-button .check-icon { display: none; color: #3fb950; margin-right: 0.2rem; }
        .copy-button.copied .copy-icon { display: none; }
        .copy-button.copied .check-icon { display: block; }
    </style>
</head>
<body>
    <div class="markdown-body">
        {{.Content}}
    </div>
    <script>
        (function() {
            let eventSource = null;
            let reconnectAttempts = 0;
            let lastMessageTime = Date.now();
            const MAX_RECONNECT_DELAY = 30000;
            const CONNECTION_TIMEOUT = 45000;
            const HEALTH_CHECK_INTERVAL = 5000;

            function connect() {
                if (eventSource) {
                    eventSource.close();
                    eventSource = null;
                }

                eventSource = new EventSource('/events');

                eventSource.onopen = function() {
                    reconnectAttempts = 0;
                    lastMessageTime = Date.now();
                };

                eventSource.onmessage = function(event) {
                    lastMessageTime = Date.now();
                    if (event.data === 'reload') {
                        location.reload();
                    }
                    // 'keepalive' only refreshes lastMessageTime.
                };

                eventSource.onerror = function() {
                    if (eventSource.readyState === EventSource.CLOSED) {
                        reconnect();
                    }
                };
            }

            function reconnect() {
                if (eventSource) {
                    eventSource.close();
                    eventSource = null;
                }
                const delay = Math.min(1000 * Math.pow(2, reconnectAttempts), MAX_RECONNECT_DELAY);
                reconnectAttempts++;
                setTimeout(connect, delay);
            }

            function checkConnectionHealth() {
                if (Date.now() - lastMessageTime > CONNECTION_TIMEOUT) {
                    reconnect();
                }
            }

            connect();
            setInterval(checkConnectionHealth, HEALTH_CHECK_INTERVAL);

            window.addEventListener('beforeunload', function() {
                if (eventSource) {
                    eventSource.close();
                }
            });
        })();

        (function() {
            const copyIcon = '<svg aria-hidden="true" height="16" viewBox="0 0 16 16" version="1.1" width="16" fill="currentColor" class="copy-icon"><path d="M0 6.75C0 5.784.784 5 1.75 5h1.5a.75.75 0 0 1 0 1.5h-1.5a.25.25 0 0 0-.25.25v7.5c0 .138.112.25.25.25h7.5a.25.25 0 0 0 .25-.25v-1.5a.75.75 0 0 1 1.5 0v1.5A1.75 1.75 0 0 1 9.25 16h-7.5A1.75 1.75 0 0 1 0 14.25Z"></path><path d="M5 1.75C5 .784 5.784 0 6.75 0h7.5C15.216 0 16 .784 16 1.75v7.5A1.75 1.75 0 0 1 14.25 11h-7.5A1.75 1.75 0 0 1 5 9.25Zm1.75-.25a.25.25 0 0 0-.25.25v7.5c0 .138.112.25.25.25h7.5a.25.25 0 0 0 .25-.25v-7.5a.25.25 0 0 0-.25-.25Z"></path></svg>';
            const checkIcon = '<svg aria-hidden="true" height="16" viewBox="0 0 16 16" version="1.1" width="16" fill="currentColor" class="check-icon"><path d="M13.78 4.22a.75.75 0 0 1 0 1.06l-7.25 7.25a.75.75 0 0 1-1.06 0L2.22 9.28a.751.751 0 0 1 .018-1.042.751.751 0 0 1 1.042-.018L6 10.94l6.72-6.72a.75.75 0 0 1 1.06 0Z"></path></svg>';

            function initCopyButtons() {
                document.querySelectorAll('pre').forEach(function(pre) {
                    if (pre.querySelector('.copy-button')) return;

                    const button = document.createElement('button');
                    button.className = 'copy-button';
                    button.setAttribute('aria-label', 'Copy');
                    button.innerHTML = copyIcon + checkIcon;

                    button.addEventListener('click', function() {
                        const code = pre.querySelector('code');
                        const text = code ? code.innerText : pre.innerText;

                        navigator.clipboard.writeText(text).then(function() {
                            button.classList.add('copied');
                            setTimeout(function() {
                                button.classList.remove('copied');
                            }, 2000);
                        });
                    });

                    pre.appendChild(button);
                });
            }

            if (document.readyState === 'loading') {
                document.addEventListener('DOMContentLoaded', initCopyButtons);
            } else {
                initCopyButtons();
            }
        })();
    </script>
</body>
</html>`))
