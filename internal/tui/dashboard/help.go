package dashboard

const helpText = `# OpsDeck

Terminal dashboard for an opsdeckd backend.

## Navigation

| Key | Action |
|-----|--------|
| tab / shift+tab | next / previous section |
| 1-8 | jump to section |
| j / k | move cursor |
| enter | open logs for the selected service |
| ? | toggle this help |
| q | quit |

## Data

| Key | Action |
|-----|--------|
| r | refresh the current section now |
| s | start the selected service |
| x | stop the selected service |
| c | restart the selected service |
| a | acknowledge the selected alert |

Background polling pauses while the terminal is unfocused, except alert
polling, which keeps running. A refresh already in flight is never doubled:
pressing r during one reports "already refreshing" instead.
`
