package dom

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/copyleftdev/sablcheck/internal/locator"
)

// queryFunction returns every element matching a descriptor in document order.
// Role queries skip hidden elements; label, text and css queries do not, since
// visibility is reported as a capability instead.
const queryFunction = `function(q) {
  const norm = s => (s || '').replace(/\s+/g, ' ').trim();
  const matches = (actual, expected, exact) => {
    actual = norm(actual);
    expected = norm(expected);
    if (exact) return actual === expected;
    return actual.toLowerCase().includes(expected.toLowerCase());
  };
  const isHidden = el => {
    if (el.closest('[aria-hidden="true"]')) return true;
    if (el.getClientRects().length === 0) return true;
    return getComputedStyle(el).visibility === 'hidden';
  };
  const inputType = el => (el.getAttribute('type') || 'text').toLowerCase();
  const implicitRole = el => {
    const explicit = el.getAttribute('role');
    if (explicit) return explicit.trim().split(/\s+/)[0].toLowerCase();
    const tag = el.tagName.toLowerCase();
    switch (tag) {
      case 'button': return 'button';
      case 'a': case 'area': return el.hasAttribute('href') ? 'link' : '';
      case 'input': {
        const t = inputType(el);
        if (['button', 'submit', 'reset', 'image'].includes(t)) return 'button';
        if (t === 'checkbox') return 'checkbox';
        if (t === 'radio') return 'radio';
        if (t === 'range') return 'slider';
        if (t === 'number') return 'spinbutton';
        if (t === 'search') return 'searchbox';
        if (['hidden', 'file', 'color', 'date', 'datetime-local', 'month', 'week', 'time'].includes(t)) return '';
        return 'textbox';
      }
      case 'textarea': return 'textbox';
      case 'select': return (el.multiple || el.size > 1) ? 'listbox' : 'combobox';
      case 'option': return 'option';
      case 'h1': case 'h2': case 'h3': case 'h4': case 'h5': case 'h6': return 'heading';
      case 'nav': return 'navigation';
      case 'main': return 'main';
      case 'header': return 'banner';
      case 'footer': return 'contentinfo';
      case 'form': return 'form';
      case 'dialog': return 'dialog';
      case 'img': return el.getAttribute('alt') === '' ? 'presentation' : 'img';
      case 'ul': case 'ol': return 'list';
      case 'li': return 'listitem';
      case 'table': return 'table';
      case 'tr': return 'row';
      case 'td': return 'cell';
      case 'th': return 'columnheader';
    }
    return '';
  };
  const byIds = ids => ids.trim().split(/\s+/)
    .map(id => document.getElementById(id))
    .filter(Boolean)
    .map(n => n.textContent)
    .join(' ');
  const accessibleName = el => {
    const labelledBy = el.getAttribute('aria-labelledby');
    if (labelledBy && norm(byIds(labelledBy))) return norm(byIds(labelledBy));
    const aria = el.getAttribute('aria-label');
    if (aria && norm(aria)) return norm(aria);
    if (el.labels && el.labels.length) {
      return norm(Array.from(el.labels).map(l => l.textContent).join(' '));
    }
    const tag = el.tagName.toLowerCase();
    if (tag === 'input') {
      const t = inputType(el);
      if (['button', 'submit', 'reset'].includes(t)) return norm(el.value);
      if (t === 'image') return norm(el.alt);
      return norm(el.getAttribute('placeholder') || el.title);
    }
    if (tag === 'img') return norm(el.alt || el.title);
    return norm(el.innerText || el.textContent || el.title);
  };
  const ordered = list => list.sort((a, b) => {
    if (a === b) return 0;
    return (a.compareDocumentPosition(b) & Node.DOCUMENT_POSITION_FOLLOWING) ? -1 : 1;
  });

  switch (q.by) {
    case 'role': {
      const role = q.value.toLowerCase();
      return Array.from(document.querySelectorAll('*')).filter(el =>
        implicitRole(el) === role && !isHidden(el) &&
        (!q.name || matches(accessibleName(el), q.name, q.exact)));
    }
    case 'label': {
      const out = [];
      const push = el => { if (el && !out.includes(el)) out.push(el); };
      for (const label of document.querySelectorAll('label')) {
        if (matches(label.textContent, q.value, q.exact)) push(label.control);
      }
      for (const el of document.querySelectorAll('[aria-label]')) {
        if (matches(el.getAttribute('aria-label'), q.value, q.exact)) push(el);
      }
      for (const el of document.querySelectorAll('[aria-labelledby]')) {
        if (matches(byIds(el.getAttribute('aria-labelledby')), q.value, q.exact)) push(el);
      }
      return ordered(out);
    }
    case 'text': {
      const out = [];
      const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD']);
      const walk = el => {
        let inner = false;
        for (const c of el.children) {
          if (!skip.has(c.tagName) && walk(c)) inner = true;
        }
        if (inner) return true;
        const t = el.tagName === 'INPUT' ? inputType(el) : '';
        const text = ['button', 'submit', 'reset'].includes(t) ? el.value : el.textContent;
        if (matches(text, q.value, q.exact)) {
          out.push(el);
          return true;
        }
        return false;
      };
      if (document.body) walk(document.body);
      return ordered(out);
    }
    case 'css':
      return Array.from(document.querySelectorAll(q.value));
  }
  throw new Error('unknown locator strategy ' + q.by);
}`

// ProbeFunction reports an element's interaction state. It runs with the
// element bound to this.
const ProbeFunction = `function() {
  const el = this;
  const tag = el.tagName.toLowerCase();
  const type = (el.getAttribute('type') || 'text').toLowerCase();
  const role = (el.getAttribute('role') || '').toLowerCase();
  const style = getComputedStyle(el);
  const rect = el.getBoundingClientRect();
  const visible = rect.width > 0 && rect.height > 0 &&
    style.visibility !== 'hidden' && style.display !== 'none';
  const disabled = !!el.disabled || el.getAttribute('aria-disabled') === 'true' ||
    !!el.closest('fieldset[disabled]');
  const readonly = !!el.readOnly || el.getAttribute('aria-readonly') === 'true';
  const nonText = ['button', 'submit', 'reset', 'image', 'checkbox', 'radio', 'file', 'hidden', 'range', 'color'];
  const textual = tag === 'textarea' || el.isContentEditable ||
    (tag === 'input' && !nonText.includes(type));
  const checkable = (tag === 'input' && (type === 'checkbox' || type === 'radio')) ||
    role === 'checkbox' || role === 'radio' || role === 'switch';
  return {
    tag: tag,
    visible: visible,
    enabled: !disabled,
    editable: textual && !disabled && !readonly,
    checkable: checkable && !disabled,
    checked: checkable && (el.checked === true || el.getAttribute('aria-checked') === 'true' ||
      el.getAttribute('data-state') === 'checked'),
    file: tag === 'input' && type === 'file' && !disabled
  };
}`

// ProbeArrow is ProbeFunction in the element-argument form expected by
// playwright's Locator.Evaluate.
const ProbeArrow = `el => (` + ProbeFunction + `).call(el)`

// ClickPointFunction scrolls the element into view and returns the viewport
// coordinates of its centre, plus whether a click there would land on it.
const ClickPointFunction = `function() {
  this.scrollIntoView({block: 'center', inline: 'center'});
  const r = this.getBoundingClientRect();
  const x = r.left + r.width / 2;
  const y = r.top + r.height / 2;
  const hit = document.elementFromPoint(x, y);
  return {x: x, y: y, hit: !!hit && (hit === this || this.contains(hit))};
}`

// ClickFunction is the programmatic fallback when the centre point is covered.
const ClickFunction = `function() { this.click(); return true; }`

const ScrollFunction = `function() { this.scrollIntoView({block: 'center', inline: 'center'}); return true; }`

const TextFunction = `function() {
  const tag = this.tagName.toLowerCase();
  const raw = (tag === 'input' || tag === 'textarea') ? this.value : (this.innerText || this.textContent);
  return (raw || '').replace(/\s+/g, ' ').trim();
}`

// Probe is the decoded result of ProbeFunction.
type Probe struct {
	Tag       string `json:"tag"`
	Visible   bool   `json:"visible"`
	Enabled   bool   `json:"enabled"`
	Editable  bool   `json:"editable"`
	Checkable bool   `json:"checkable"`
	Checked   bool   `json:"checked"`
	File      bool   `json:"file"`
}

// Capabilities maps a probe onto the locator capability set. Everything but
// file selection requires the element to be rendered.
func (p Probe) Capabilities() locator.Capability {
	caps := locator.None
	if p.File {
		caps |= locator.Uploadable
	}
	if !p.Visible {
		return caps
	}
	caps |= locator.Visible
	if p.Enabled {
		caps |= locator.Clickable
	}
	if p.Editable {
		caps |= locator.Fillable
	}
	if p.Checkable {
		caps |= locator.Checkable
	}
	return caps
}

type query struct {
	By    string `json:"by"`
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
	Exact bool   `json:"exact,omitempty"`
}

// QueryExpression returns a JavaScript expression evaluating to the array of
// elements matching d.
func QueryExpression(d locator.Descriptor) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	arg, err := json.Marshal(query{By: string(d.By), Value: d.Value, Name: d.Name, Exact: d.Exact})
	if err != nil {
		return "", fmt.Errorf("encode locator: %w", err)
	}
	return "(" + queryFunction + ")(" + string(arg) + ")", nil
}

// CountExpression evaluates to the number of matches for d.
func CountExpression(d locator.Descriptor) (string, error) {
	expr, err := QueryExpression(d)
	if err != nil {
		return "", err
	}
	return expr + ".length", nil
}

// NthExpression evaluates to the i-th match for d, or undefined.
func NthExpression(d locator.Descriptor, i int) (string, error) {
	expr, err := QueryExpression(d)
	if err != nil {
		return "", err
	}
	return expr + "[" + strconv.Itoa(i) + "]", nil
}

// FillFunction sets value through the native value setter and fires input and
// change events so framework-controlled inputs observe the edit.
func FillFunction(value string) string {
	lit, _ := json.Marshal(value)
	return `function() {
  const value = ` + string(lit) + `;
  const el = this;
  el.scrollIntoView({block: 'center', inline: 'center'});
  el.focus();
  if (el.isContentEditable) {
    el.textContent = value;
    el.dispatchEvent(new InputEvent('input', {bubbles: true}));
    return true;
  }
  const proto = el.tagName.toLowerCase() === 'textarea' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
  Object.getOwnPropertyDescriptor(proto, 'value').set.call(el, value);
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return true;
}`
}
